package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// S3Storage implements BlobStore against Amazon S3 or an
// S3-compatible endpoint (for local development against e.g.
// LocalStack or MinIO).
type S3Storage struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Storage creates a BlobStore backed by the named bucket in
// region. If endpoint is non-empty, the client targets that
// S3-compatible endpoint instead of AWS.
func NewS3Storage(ctx context.Context, bucket, region, endpoint string, logger *zap.Logger) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 blob store initialized", zap.String("bucket", bucket), zap.String("region", region))

	return &S3Storage{client: client, bucket: bucket, logger: logger}, nil
}

func isNotFoundErr(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

// Put implements BlobStore.Put.
func (s *S3Storage) Put(ctx context.Context, path string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object to S3: %w", err)
	}

	s.logger.Debug("blob written to S3", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Get implements BlobStore.Get.
func (s *S3Storage) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.GetReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// GetReader implements BlobStore.GetReader.
func (s *S3Storage) GetReader(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFoundErr(err) {
			return nil, fmt.Errorf("blob not found: %s", path)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return out.Body, nil
}

// Exists implements BlobStore.Exists.
func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err == nil {
		return true, nil
	}
	if isNotFoundErr(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head object in S3: %w", err)
}

// Delete implements BlobStore.Delete.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil && !isNotFoundErr(err) {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// PathOnFS implements BlobStore.PathOnFS. S3 objects have no local
// filesystem representation.
func (s *S3Storage) PathOnFS(ctx context.Context, path string) (string, error) {
	return "", ErrNoLocalPath
}

// DeletePrefix implements BlobStore.DeletePrefix.
func (s *S3Storage) DeletePrefix(ctx context.Context, prefix string) error {
	var continuationToken *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}

		for _, obj := range out.Contents {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil && !isNotFoundErr(err) {
				s.logger.Warn("failed to delete object", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		continuationToken = out.NextContinuationToken
	}
}
