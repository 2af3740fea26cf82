package catalogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anvil-lab/catalogue/internal/models"
)

const uploadColumns = `id, original_filename, stored_filename, mime_type, total_size,
	total_chunks, uploaded_chunks, checksum_sha256, status, failure_reason,
	created_at, updated_at, completed_at`

func scanUpload(row pgx.Row) (*models.Upload, error) {
	var u models.Upload
	err := row.Scan(
		&u.ID, &u.OriginalFilename, &u.StoredFilename, &u.MimeType, &u.TotalSize,
		&u.TotalChunks, &u.UploadedChunks, &u.ChecksumSHA256, &u.Status, &u.FailureReason,
		&u.CreatedAt, &u.UpdatedAt, &u.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("upload: %w", models.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// CreateUpload inserts a new Upload row in status pending.
func (s *pgxStore) CreateUpload(ctx context.Context, u *models.Upload) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO uploads (id, original_filename, stored_filename, mime_type, total_size,
			total_chunks, uploaded_chunks, checksum_sha256, status, failure_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		u.ID, u.OriginalFilename, u.StoredFilename, u.MimeType, u.TotalSize,
		u.TotalChunks, u.UploadedChunks, u.ChecksumSHA256, u.Status, u.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert upload: %v", models.ErrStorageError, err)
	}
	return nil
}

// GetUpload fetches an Upload without locking, along with its
// uploaded chunk set.
func (s *pgxStore) GetUpload(ctx context.Context, id string) (*models.Upload, error) {
	u, err := scanUpload(s.db.Pool.QueryRow(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadChunkSet(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *pgxStore) loadChunkSet(ctx context.Context, u *models.Upload) error {
	rows, err := s.db.Pool.Query(ctx, `SELECT chunk_index FROM upload_chunks WHERE upload_id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to load chunk set: %v", models.ErrStorageError, err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return err
		}
		indices = append(indices, idx)
	}
	u.UploadedChunkSet = models.NewChunkSet(indices)
	return rows.Err()
}

// GetCompletedUploadByChecksum implements the initialize() dedup rule.
func (s *pgxStore) GetCompletedUploadByChecksum(ctx context.Context, checksum string) (*models.Upload, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE checksum_sha256 = $1 AND status = $2 LIMIT 1`,
		checksum, models.UploadStatusCompleted,
	)
	u, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetUploadForUpdate fetches an Upload under SELECT ... FOR UPDATE,
// the row-level exclusive lock receive_chunk and cancel require.
func (s *pgxStore) GetUploadForUpdate(ctx context.Context, tx Tx, id string) (*models.Upload, error) {
	u, err := scanUpload(tx.QueryRow(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadChunkSetTx(ctx, tx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *pgxStore) loadChunkSetTx(ctx context.Context, tx Tx, u *models.Upload) error {
	rows, err := tx.Query(ctx, `SELECT chunk_index FROM upload_chunks WHERE upload_id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to load chunk set: %v", models.ErrStorageError, err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return err
		}
		indices = append(indices, idx)
	}
	u.UploadedChunkSet = models.NewChunkSet(indices)
	return rows.Err()
}

// MarkChunkReceived records one chunk index as received, idempotently
// (ON CONFLICT DO NOTHING — receive_chunk already no-ops on a repeat
// index before calling this, but duplicate inserts must stay harmless).
func (s *pgxStore) MarkChunkReceived(ctx context.Context, tx Tx, uploadID string, chunkIndex int) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO upload_chunks (upload_id, chunk_index, received_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (upload_id, chunk_index) DO NOTHING`,
		uploadID, chunkIndex,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to record chunk: %v", models.ErrStorageError, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE uploads SET uploaded_chunks = (SELECT COUNT(*) FROM upload_chunks WHERE upload_id = $1),
			status = CASE WHEN status = $2 THEN $3 ELSE status END, updated_at = NOW()
		 WHERE id = $1`,
		uploadID, models.UploadStatusPending, models.UploadStatusUploading,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update upload progress: %v", models.ErrStorageError, err)
	}
	return nil
}

// UpdateUploadStatus persists status, failure_reason, and
// completed_at for u.
func (s *pgxStore) UpdateUploadStatus(ctx context.Context, tx Tx, u *models.Upload) error {
	_, err := tx.Exec(ctx,
		`UPDATE uploads SET status = $1, failure_reason = $2, completed_at = $3, updated_at = NOW() WHERE id = $4`,
		u.Status, u.FailureReason, u.CompletedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update upload status: %v", models.ErrStorageError, err)
	}
	return nil
}

// GetCompletedUploadByOriginalFilename supports resolver step 2.
func (s *pgxStore) GetCompletedUploadByOriginalFilename(ctx context.Context, name string) (*models.Upload, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE original_filename = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT 1`,
		name, models.UploadStatusCompleted,
	)
	u, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// GetCompletedUploadByStoredFilenameContains supports resolver step 2's
// fallback sub-strategy.
func (s *pgxStore) GetCompletedUploadByStoredFilenameContains(ctx context.Context, substr string) (*models.Upload, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE stored_filename LIKE '%' || $1 || '%' AND status = $2
		 ORDER BY created_at DESC LIMIT 1`,
		substr, models.UploadStatusCompleted,
	)
	u, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
