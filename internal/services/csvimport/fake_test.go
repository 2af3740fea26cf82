package csvimport

import (
	"context"
	"fmt"
	"sync"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/models"
)

// fakeCatalog is an in-memory catalogue.Store for Import Engine tests.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
	logs     map[string]*models.ImportLog
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]*models.Product), logs: make(map[string]*models.ImportLog)}
}

func (f *fakeCatalog) CreateUpload(ctx context.Context, u *models.Upload) error { return nil }
func (f *fakeCatalog) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	return nil, fmt.Errorf("upload: %w", models.ErrNotFound)
}
func (f *fakeCatalog) GetCompletedUploadByChecksum(ctx context.Context, checksum string) (*models.Upload, error) {
	return nil, nil
}
func (f *fakeCatalog) GetUploadForUpdate(ctx context.Context, tx catalogue.Tx, id string) (*models.Upload, error) {
	return nil, fmt.Errorf("upload: %w", models.ErrNotFound)
}
func (f *fakeCatalog) MarkChunkReceived(ctx context.Context, tx catalogue.Tx, uploadID string, chunkIndex int) error {
	return nil
}
func (f *fakeCatalog) UpdateUploadStatus(ctx context.Context, tx catalogue.Tx, u *models.Upload) error {
	return nil
}
func (f *fakeCatalog) GetCompletedUploadByOriginalFilename(ctx context.Context, name string) (*models.Upload, error) {
	return nil, nil
}
func (f *fakeCatalog) GetCompletedUploadByStoredFilenameContains(ctx context.Context, substr string) (*models.Upload, error) {
	return nil, nil
}

func (f *fakeCatalog) SaveImage(ctx context.Context, img *models.Image) error { return nil }
func (f *fakeCatalog) GetImageByUploadVariant(ctx context.Context, uploadID string, variant models.Variant) (*models.Image, error) {
	return nil, fmt.Errorf("image: %w", models.ErrNotFound)
}
func (f *fakeCatalog) FindOriginalImageByPath(ctx context.Context, source string) (*models.Image, error) {
	return nil, nil
}
func (f *fakeCatalog) FindOriginalImageByPathContains(ctx context.Context, substr string) (*models.Image, error) {
	return nil, nil
}
func (f *fakeCatalog) FindOriginalImageByUploadOriginalFilename(ctx context.Context, name string) (*models.Image, error) {
	return nil, nil
}
func (f *fakeCatalog) FindOriginalImageByUploadStoredFilenameContains(ctx context.Context, substr string) (*models.Image, error) {
	return nil, nil
}
func (f *fakeCatalog) DeleteImagesForUpload(ctx context.Context, uploadID string) error { return nil }

func (f *fakeCatalog) UpsertProduct(ctx context.Context, tx catalogue.Tx, p *models.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, existed := f.products[p.SKU]
	f.products[p.SKU] = p
	return !existed, nil
}

func (f *fakeCatalog) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[sku]
	if !ok {
		return nil, fmt.Errorf("product: %w", models.ErrNotFound)
	}
	return p, nil
}

func (f *fakeCatalog) AttachPrimaryImage(ctx context.Context, tx catalogue.Tx, sku, imageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[sku]; ok {
		p.PrimaryImageID = &imageID
	}
	return nil
}
func (f *fakeCatalog) NullifyImageRef(ctx context.Context, imageID string) error { return nil }

func (f *fakeCatalog) CreateImportLog(ctx context.Context, l *models.ImportLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[l.ID] = l
	return nil
}
func (f *fakeCatalog) UpdateImportLog(ctx context.Context, l *models.ImportLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[l.ID] = l
	return nil
}
func (f *fakeCatalog) GetImportLog(ctx context.Context, id string) (*models.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.logs[id]
	if !ok {
		return nil, fmt.Errorf("import log: %w", models.ErrNotFound)
	}
	return l, nil
}
func (f *fakeCatalog) ListImportLogs(ctx context.Context, page, perPage int) ([]*models.ImportLog, int, error) {
	return nil, 0, nil
}
func (f *fakeCatalog) ImportStatisticsSince(ctx context.Context, days int) (*catalogue.ImportStatistics, error) {
	return &catalogue.ImportStatistics{}, nil
}

func (f *fakeCatalog) WithTransaction(ctx context.Context, fn func(tx catalogue.Tx) error) error {
	return fn(nil)
}

// fakeResolver resolves every source to the fixed ID
// "resolved-image-id"; tests without a primary_image column never call
// it.
type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, source string) (string, error) {
	return "resolved-image-id", nil
}
