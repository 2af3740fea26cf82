// Package catalogue is the pgx-backed repository for Upload, Image,
// Product, and ImportLog rows. Queries follow the teacher's style —
// raw SQL against the shared pgxpool, Scan directly into fields — kept
// in one place instead of scattered across HTTP handlers, since the
// Upload Engine, Variant Generator, and Import Engine all need the
// same rows.
package catalogue

import (
	"context"

	"github.com/anvil-lab/catalogue/internal/database"
	"github.com/anvil-lab/catalogue/internal/models"
	"go.uber.org/zap"
)

// Store is the full repository surface the engines depend on.
type Store interface {
	// Uploads
	CreateUpload(ctx context.Context, u *models.Upload) error
	GetUpload(ctx context.Context, id string) (*models.Upload, error)
	GetCompletedUploadByChecksum(ctx context.Context, checksum string) (*models.Upload, error)
	GetUploadForUpdate(ctx context.Context, tx Tx, id string) (*models.Upload, error)
	MarkChunkReceived(ctx context.Context, tx Tx, uploadID string, chunkIndex int) error
	UpdateUploadStatus(ctx context.Context, tx Tx, u *models.Upload) error
	GetCompletedUploadByOriginalFilename(ctx context.Context, name string) (*models.Upload, error)
	GetCompletedUploadByStoredFilenameContains(ctx context.Context, substr string) (*models.Upload, error)

	// Images
	SaveImage(ctx context.Context, img *models.Image) error
	GetImageByUploadVariant(ctx context.Context, uploadID string, variant models.Variant) (*models.Image, error)
	FindOriginalImageByPath(ctx context.Context, source string) (*models.Image, error)
	FindOriginalImageByPathContains(ctx context.Context, substr string) (*models.Image, error)
	FindOriginalImageByUploadOriginalFilename(ctx context.Context, name string) (*models.Image, error)
	FindOriginalImageByUploadStoredFilenameContains(ctx context.Context, substr string) (*models.Image, error)
	DeleteImagesForUpload(ctx context.Context, uploadID string) error

	// Products
	UpsertProduct(ctx context.Context, tx Tx, p *models.Product) (created bool, err error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	AttachPrimaryImage(ctx context.Context, tx Tx, sku, imageID string) error
	NullifyImageRef(ctx context.Context, imageID string) error

	// Import logs
	CreateImportLog(ctx context.Context, l *models.ImportLog) error
	UpdateImportLog(ctx context.Context, l *models.ImportLog) error
	GetImportLog(ctx context.Context, id string) (*models.ImportLog, error)
	ListImportLogs(ctx context.Context, page, perPage int) ([]*models.ImportLog, int, error)
	ImportStatisticsSince(ctx context.Context, days int) (*ImportStatistics, error)

	// Transactions
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// ImportStatistics aggregates ImportLog rows over a trailing window.
type ImportStatistics struct {
	TotalImports    int     `json:"total_imports"`
	TotalRows       int     `json:"total_rows"`
	TotalImported   int     `json:"total_imported"`
	TotalUpdated    int     `json:"total_updated"`
	TotalInvalid    int     `json:"total_invalid"`
	TotalDuplicate  int     `json:"total_duplicate"`
	AverageSuccess  float64 `json:"average_success_rate"`
}

// pgxStore is the production Store implementation.
type pgxStore struct {
	db     *database.DB
	logger *zap.Logger
}

// New builds a Store backed by db.
func New(db *database.DB, logger *zap.Logger) Store {
	return &pgxStore{db: db, logger: logger}
}
