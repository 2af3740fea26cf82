package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// GCSStorage implements BlobStore against a Google Cloud Storage
// bucket.
type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	logger *zap.Logger
}

// NewGCSStorage creates a BlobStore backed by the named bucket, using
// GOOGLE_APPLICATION_CREDENTIALS or default credentials.
func NewGCSStorage(ctx context.Context, bucketName string, logger *zap.Logger) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	bucket := client.Bucket(bucketName)
	if _, err := bucket.Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketName, err)
	}

	logger.Info("GCS blob store initialized", zap.String("bucket", bucketName))

	return &GCSStorage{client: client, bucket: bucket, logger: logger}, nil
}

// Close closes the underlying GCS client.
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

// Put implements BlobStore.Put.
func (g *GCSStorage) Put(ctx context.Context, path string, data []byte) error {
	obj := g.bucket.Object(path)
	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	g.logger.Debug("blob written to GCS", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Get implements BlobStore.Get.
func (g *GCSStorage) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := g.GetReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// GetReader implements BlobStore.GetReader.
func (g *GCSStorage) GetReader(ctx context.Context, path string) (io.ReadCloser, error) {
	obj := g.bucket.Object(path)
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("blob not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	return r, nil
}

// Exists implements BlobStore.Exists.
func (g *GCSStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.bucket.Object(path).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

// Delete implements BlobStore.Delete.
func (g *GCSStorage) Delete(ctx context.Context, path string) error {
	if err := g.bucket.Object(path).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}

// PathOnFS implements BlobStore.PathOnFS. GCS objects have no local
// filesystem representation.
func (g *GCSStorage) PathOnFS(ctx context.Context, path string) (string, error) {
	return "", ErrNoLocalPath
}

// DeletePrefix implements BlobStore.DeletePrefix.
func (g *GCSStorage) DeletePrefix(ctx context.Context, prefix string) error {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}

		if err := g.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			g.logger.Warn("failed to delete object", zap.String("object", attrs.Name), zap.Error(err))
		}
	}
}
