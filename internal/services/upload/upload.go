// Package upload implements the chunked resumable upload state
// machine: initialize, receive_chunk, complete, status, resume, and
// cancel, each grounded on the teacher's handler-level flow for
// large-file ingestion but rebuilt against the Blob Store and
// Catalogue Store abstractions instead of ad-hoc multipart state.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/checksum"
	"github.com/anvil-lab/catalogue/internal/models"
	"github.com/anvil-lab/catalogue/internal/services/storage"
	"github.com/anvil-lab/catalogue/internal/services/variant"
)

const (
	minTotalChunks = 1
	maxTotalChunks = 10000

	minTotalSize = 1
	maxTotalSize = 5 * 1024 * 1024 * 1024 // 5 GiB

	minChunkSize = 5 * 1024        // 5 KiB
	maxChunkSize = 100 * 1024 * 1024 // 100 MiB
)

// ReceiveResult is the outcome of one receive_chunk call.
type ReceiveResult struct {
	UploadedChunks int                 `json:"uploaded_chunks"`
	TotalChunks    int                 `json:"total_chunks"`
	Progress       float64             `json:"progress"`
	Status         models.UploadStatus `json:"status"`
}

// ResumeResult is the outcome of a resume query.
type ResumeResult struct {
	CanResume            bool    `json:"can_resume"`
	UploadedChunkIndices []int   `json:"uploaded_chunk_indices"`
	MissingChunkIndices  []int   `json:"missing_chunk_indices"`
	Progress             float64 `json:"progress"`
}

// CompleteResult is the outcome of a complete call.
type CompleteResult struct {
	Upload *models.Upload  `json:"upload"`
	Images []*models.Image `json:"images,omitempty"`
}

// Engine is the Upload Engine.
type Engine struct {
	catalog  catalogue.Store
	store    storage.BlobStore
	variants *variant.Generator
	logger   *zap.Logger
}

// New builds an Engine.
func New(catalog catalogue.Store, store storage.BlobStore, variants *variant.Generator, logger *zap.Logger) *Engine {
	return &Engine{catalog: catalog, store: store, variants: variants, logger: logger}
}

// Initialize validates the declared upload shape and either returns an
// existing completed Upload with the same checksum (deduplication) or
// creates a new pending one.
func (e *Engine) Initialize(ctx context.Context, originalFilename string, totalChunks int, totalSize int64, checksumSHA256, mimeType string) (*models.Upload, error) {
	if totalChunks < minTotalChunks || totalChunks > maxTotalChunks {
		return nil, fmt.Errorf("%w: total_chunks must be between %d and %d", models.ErrValidation, minTotalChunks, maxTotalChunks)
	}
	if totalSize < minTotalSize || totalSize > maxTotalSize {
		return nil, fmt.Errorf("%w: total_size must be between %d and %d bytes", models.ErrValidation, minTotalSize, maxTotalSize)
	}
	if !checksum.ValidHexDigest(checksumSHA256) {
		return nil, fmt.Errorf("%w: checksum_sha256 must be 64 hex characters", models.ErrValidation)
	}

	impliedChunkSize := totalSize / int64(totalChunks)
	if impliedChunkSize < minChunkSize || impliedChunkSize > maxChunkSize {
		return nil, fmt.Errorf("%w: implied chunk size %d bytes outside [%d, %d]", models.ErrValidation, impliedChunkSize, minChunkSize, maxChunkSize)
	}

	checksumLower := strings.ToLower(checksumSHA256)

	if existing, err := e.catalog.GetCompletedUploadByChecksum(ctx, checksumLower); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	u := &models.Upload{
		ID:               uuid.NewString(),
		OriginalFilename: originalFilename,
		StoredFilename:   storedFilename(originalFilename),
		MimeType:         mimeType,
		TotalSize:        totalSize,
		TotalChunks:      totalChunks,
		ChecksumSHA256:   checksumLower,
		Status:           models.UploadStatusPending,
		UploadedChunkSet: models.NewChunkSet(nil),
	}

	if err := e.catalog.CreateUpload(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func storedFilename(original string) string {
	return uuid.NewString() + "-" + slug.Make(original)
}

// ReceiveChunk implements the six-step receive_chunk protocol under a
// row-level exclusive lock.
func (e *Engine) ReceiveChunk(ctx context.Context, uploadID string, chunkIndex int, base64Data, chunkChecksum string) (*ReceiveResult, error) {
	var result *ReceiveResult

	err := e.catalog.WithTransaction(ctx, func(tx catalogue.Tx) error {
		u, err := e.catalog.GetUploadForUpdate(ctx, tx, uploadID)
		if err != nil {
			return err
		}

		if u.Status == models.UploadStatusCompleted {
			result = &ReceiveResult{UploadedChunks: u.UploadedChunks, TotalChunks: u.TotalChunks, Progress: u.Progress(), Status: u.Status}
			return nil
		}
		if u.Status == models.UploadStatusFailed || u.Status == models.UploadStatusCancelled {
			return fmt.Errorf("%w: upload %s is in terminal state %s", models.ErrStateConflict, uploadID, u.Status)
		}

		if u.UploadedChunkSet.Has(chunkIndex) {
			result = &ReceiveResult{UploadedChunks: u.UploadedChunks, TotalChunks: u.TotalChunks, Progress: u.Progress(), Status: u.Status}
			return nil
		}

		decoded, err := base64.StdEncoding.DecodeString(base64Data)
		if err != nil {
			return fmt.Errorf("%w: malformed base64 chunk data: %v", models.ErrValidation, err)
		}

		if !checksum.Equal(checksum.SHA256Hex(decoded), chunkChecksum) {
			return fmt.Errorf("%w: chunk %d checksum mismatch", models.ErrChecksumMismatch, chunkIndex)
		}

		path := models.ChunkPathFor(uploadID, chunkIndex)
		if err := e.store.Put(ctx, path, decoded); err != nil {
			return fmt.Errorf("%w: failed to write chunk %d: %v", models.ErrStorageError, chunkIndex, err)
		}

		stored, err := e.store.Get(ctx, path)
		if err != nil || !checksum.Equal(checksum.SHA256Hex(stored), chunkChecksum) {
			e.store.Delete(ctx, path)
			return fmt.Errorf("%w: stored chunk %d failed re-verification", models.ErrChecksumMismatch, chunkIndex)
		}

		if err := e.catalog.MarkChunkReceived(ctx, tx, uploadID, chunkIndex); err != nil {
			return err
		}

		u.UploadedChunkSet[chunkIndex] = struct{}{}
		u.UploadedChunks = len(u.UploadedChunkSet)
		if u.Status == models.UploadStatusPending {
			u.Status = models.UploadStatusUploading
		}

		result = &ReceiveResult{UploadedChunks: u.UploadedChunks, TotalChunks: u.TotalChunks, Progress: u.Progress(), Status: u.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete assembles the received chunks, verifies the whole-file
// checksum, and optionally dispatches variant generation.
func (e *Engine) Complete(ctx context.Context, uploadID string, generateVariants bool) (*CompleteResult, error) {
	var (
		result    *CompleteResult
		toGenerate *models.Upload
		mismatch   bool
	)

	err := e.catalog.WithTransaction(ctx, func(tx catalogue.Tx) error {
		u, err := e.catalog.GetUploadForUpdate(ctx, tx, uploadID)
		if err != nil {
			return err
		}

		if u.Status == models.UploadStatusCompleted {
			result = &CompleteResult{Upload: u}
			return nil
		}
		if u.Status == models.UploadStatusFailed || u.Status == models.UploadStatusCancelled {
			return fmt.Errorf("%w: upload %s is in terminal state %s", models.ErrStateConflict, uploadID, u.Status)
		}
		if u.UploadedChunks != u.TotalChunks {
			return fmt.Errorf("%w: missing_chunks: %v", models.ErrStateConflict, u.UploadedChunkSet.Missing(u.TotalChunks))
		}

		assembled, err := e.assembleChunks(ctx, u)
		if err != nil {
			return fmt.Errorf("%w: failed to assemble blob: %v", models.ErrStorageError, err)
		}

		sum := checksum.SHA256Hex(assembled)
		if !checksum.Equal(sum, u.ChecksumSHA256) {
			e.store.Delete(ctx, u.BlobPath())
			u.Status = models.UploadStatusFailed
			u.FailureReason = "checksum mismatch"
			if err := e.catalog.UpdateUploadStatus(ctx, tx, u); err != nil {
				return err
			}
			// Commit the failed status; the mismatch is reported after
			// the transaction so the rollback does not undo it.
			mismatch = true
			return nil
		}

		now := time.Now()
		u.Status = models.UploadStatusCompleted
		u.CompletedAt = &now
		if err := e.catalog.UpdateUploadStatus(ctx, tx, u); err != nil {
			return err
		}

		if err := e.store.DeletePrefix(ctx, models.ChunkPrefix(uploadID)); err != nil {
			e.logger.Warn("failed to clean up chunk prefix", zap.String("upload_id", uploadID), zap.Error(err))
		}

		result = &CompleteResult{Upload: u}
		if generateVariants && models.SupportedImageMimeTypes[u.MimeType] {
			toGenerate = u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mismatch {
		return nil, fmt.Errorf("%w: assembled blob checksum mismatch", models.ErrChecksumMismatch)
	}

	if toGenerate != nil && e.variants != nil {
		images, genErr := e.variants.GenerateAll(ctx, toGenerate)
		if genErr != nil {
			e.logger.Warn("variant generation incomplete", zap.String("upload_id", uploadID), zap.Error(genErr))
		}
		result.Images = images
	}

	return result, nil
}

func (e *Engine) assembleChunks(ctx context.Context, u *models.Upload) ([]byte, error) {
	buf := make([]byte, 0, u.TotalSize)
	for i := 0; i < u.TotalChunks; i++ {
		chunk, err := e.store.Get(ctx, models.ChunkPathFor(u.ID, i))
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %d: %w", i, err)
		}
		buf = append(buf, chunk...)
	}

	if err := e.store.Put(ctx, u.BlobPath(), buf); err != nil {
		return nil, fmt.Errorf("failed to write assembled blob: %w", err)
	}
	return buf, nil
}

// Status reports current progress for an Upload.
func (e *Engine) Status(ctx context.Context, uploadID string) (*models.Upload, error) {
	return e.catalog.GetUpload(ctx, uploadID)
}

// Resume reports which chunks are missing so a client can restart a
// partial upload.
func (e *Engine) Resume(ctx context.Context, uploadID string) (*ResumeResult, error) {
	u, err := e.catalog.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	canResume := u.Status == models.UploadStatusPending || u.Status == models.UploadStatusUploading
	return &ResumeResult{
		CanResume:            canResume,
		UploadedChunkIndices: u.UploadedChunkSet.Slice(),
		MissingChunkIndices:  u.UploadedChunkSet.Missing(u.TotalChunks),
		Progress:             u.Progress(),
	}, nil
}

// Cancel marks a non-terminal Upload cancelled and deletes its staged
// chunks and any Image rows. Returns false if the Upload does not exist
// or is already in a terminal state.
func (e *Engine) Cancel(ctx context.Context, uploadID string) (bool, error) {
	var cancelled bool

	err := e.catalog.WithTransaction(ctx, func(tx catalogue.Tx) error {
		u, err := e.catalog.GetUploadForUpdate(ctx, tx, uploadID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if u.Status.IsTerminal() {
			return nil
		}

		u.Status = models.UploadStatusCancelled
		u.FailureReason = "Cancelled"
		if err := e.catalog.UpdateUploadStatus(ctx, tx, u); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if cancelled {
		if err := e.store.DeletePrefix(ctx, models.ChunkPrefix(uploadID)); err != nil {
			e.logger.Warn("failed to clean up chunk prefix on cancel", zap.String("upload_id", uploadID), zap.Error(err))
		}
		if err := e.catalog.DeleteImagesForUpload(ctx, uploadID); err != nil {
			e.logger.Warn("failed to clean up images on cancel", zap.String("upload_id", uploadID), zap.Error(err))
		}
	}
	return cancelled, nil
}

// VerifyChecksum recomputes the assembled blob's SHA-256 and compares
// it constant-time against the Upload's declared checksum. Only valid
// for completed uploads.
func (e *Engine) VerifyChecksum(ctx context.Context, uploadID string) (bool, error) {
	u, err := e.catalog.GetUpload(ctx, uploadID)
	if err != nil {
		return false, err
	}
	if u.Status != models.UploadStatusCompleted {
		return false, fmt.Errorf("%w: verify_checksum only valid for completed uploads", models.ErrStateConflict)
	}

	path, err := e.store.PathOnFS(ctx, u.BlobPath())
	var sum string
	if err == nil {
		sum, err = checksum.SHA256HexFile(path)
	} else {
		var data []byte
		data, err = e.store.Get(ctx, u.BlobPath())
		if err == nil {
			sum = checksum.SHA256Hex(data)
		}
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to read assembled blob: %v", models.ErrStorageError, err)
	}

	return checksum.Equal(sum, u.ChecksumSHA256), nil
}
