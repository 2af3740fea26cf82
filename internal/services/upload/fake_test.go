package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/models"
)

// fakeCatalog is an in-memory catalogue.Store for Upload Engine tests.
// It implements only the operations the Upload Engine exercises; the
// Import Engine and Variant Generator have their own fakes.
type fakeCatalog struct {
	mu      sync.Mutex
	uploads map[string]*models.Upload
	images  map[string]*models.Image
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		uploads: make(map[string]*models.Upload),
		images:  make(map[string]*models.Image),
	}
}

func cloneUpload(u *models.Upload) *models.Upload {
	cp := *u
	cp.UploadedChunkSet = models.NewChunkSet(u.UploadedChunkSet.Slice())
	return &cp
}

func (f *fakeCatalog) CreateUpload(ctx context.Context, u *models.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[u.ID] = cloneUpload(u)
	return nil
}

func (f *fakeCatalog) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[id]
	if !ok {
		return nil, fmt.Errorf("upload: %w", models.ErrNotFound)
	}
	return cloneUpload(u), nil
}

func (f *fakeCatalog) GetCompletedUploadByChecksum(ctx context.Context, checksum string) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uploads {
		if u.Status == models.UploadStatusCompleted && u.ChecksumSHA256 == checksum {
			return cloneUpload(u), nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetUploadForUpdate(ctx context.Context, tx catalogue.Tx, id string) (*models.Upload, error) {
	return f.GetUpload(ctx, id)
}

func (f *fakeCatalog) MarkChunkReceived(ctx context.Context, tx catalogue.Tx, uploadID string, chunkIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[uploadID]
	if !ok {
		return fmt.Errorf("upload: %w", models.ErrNotFound)
	}
	u.UploadedChunkSet[chunkIndex] = struct{}{}
	u.UploadedChunks = len(u.UploadedChunkSet)
	return nil
}

func (f *fakeCatalog) UpdateUploadStatus(ctx context.Context, tx catalogue.Tx, u *models.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.uploads[u.ID]
	if !ok {
		return fmt.Errorf("upload: %w", models.ErrNotFound)
	}
	existing.Status = u.Status
	existing.FailureReason = u.FailureReason
	existing.CompletedAt = u.CompletedAt
	return nil
}

func (f *fakeCatalog) GetCompletedUploadByOriginalFilename(ctx context.Context, name string) (*models.Upload, error) {
	return nil, nil
}

func (f *fakeCatalog) GetCompletedUploadByStoredFilenameContains(ctx context.Context, substr string) (*models.Upload, error) {
	return nil, nil
}

func (f *fakeCatalog) SaveImage(ctx context.Context, img *models.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[img.UploadID+"/"+string(img.Variant)] = img
	return nil
}

func (f *fakeCatalog) GetImageByUploadVariant(ctx context.Context, uploadID string, variant models.Variant) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[uploadID+"/"+string(variant)]
	if !ok {
		return nil, fmt.Errorf("image: %w", models.ErrNotFound)
	}
	return img, nil
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
	return false, nil
}
func (f *fakeCatalog) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return nil, fmt.Errorf("product: %w", models.ErrNotFound)
}
func (f *fakeCatalog) AttachPrimaryImage(ctx context.Context, tx catalogue.Tx, sku, imageID string) error {
	return nil
}
func (f *fakeCatalog) NullifyImageRef(ctx context.Context, imageID string) error { return nil }

func (f *fakeCatalog) CreateImportLog(ctx context.Context, l *models.ImportLog) error { return nil }
func (f *fakeCatalog) UpdateImportLog(ctx context.Context, l *models.ImportLog) error { return nil }
func (f *fakeCatalog) GetImportLog(ctx context.Context, id string) (*models.ImportLog, error) {
	return nil, fmt.Errorf("import log: %w", models.ErrNotFound)
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
