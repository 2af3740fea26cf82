package storage

import (
	"context"
	"fmt"

	"github.com/anvil-lab/catalogue/internal/config"
	"go.uber.org/zap"
)

// New constructs the BlobStore selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.Local.BaseDir, logger)
	case "gcs":
		return NewGCSStorage(ctx, cfg.GCS.Bucket, logger)
	case "s3":
		return NewS3Storage(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Endpoint, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
