package catalogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anvil-lab/catalogue/internal/models"
)

const imageColumns = `id, upload_id, variant, path, width, height, size_bytes, mime_type, created_at`

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	err := row.Scan(&img.ID, &img.UploadID, &img.Variant, &img.Path, &img.Width, &img.Height,
		&img.SizeBytes, &img.MimeType, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("image: %w", models.ErrNotFound)
		}
		return nil, err
	}
	return &img, nil
}

// SaveImage inserts img, reusing the existing row on a (upload_id,
// variant) conflict — the idempotency rule of the Variant Generator.
func (s *pgxStore) SaveImage(ctx context.Context, img *models.Image) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO images (id, upload_id, variant, path, width, height, size_bytes, mime_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (upload_id, variant) DO UPDATE SET
			path = EXCLUDED.path, width = EXCLUDED.width, height = EXCLUDED.height,
			size_bytes = EXCLUDED.size_bytes, mime_type = EXCLUDED.mime_type`,
		img.ID, img.UploadID, img.Variant, img.Path, img.Width, img.Height, img.SizeBytes, img.MimeType,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save image: %v", models.ErrStorageError, err)
	}
	return nil
}

// GetImageByUploadVariant returns the Image for (upload_id, variant),
// or ErrNotFound if none exists yet.
func (s *pgxStore) GetImageByUploadVariant(ctx context.Context, uploadID string, v models.Variant) (*models.Image, error) {
	return scanImage(s.db.Pool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE upload_id = $1 AND variant = $2`,
		uploadID, v,
	))
}

// FindOriginalImageByPath implements resolver step 1's first
// sub-strategy: exact path match on a variant=original image.
func (s *pgxStore) FindOriginalImageByPath(ctx context.Context, source string) (*models.Image, error) {
	return notFoundToNil(scanImage(s.db.Pool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE variant = $1 AND path = $2
		 ORDER BY created_at DESC LIMIT 1`,
		models.VariantOriginal, source,
	)))
}

// FindOriginalImageByPathContains implements resolver step 1's second
// sub-strategy: path contains basename(source).
func (s *pgxStore) FindOriginalImageByPathContains(ctx context.Context, substr string) (*models.Image, error) {
	return notFoundToNil(scanImage(s.db.Pool.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE variant = $1 AND path LIKE '%' || $2 || '%'
		 ORDER BY created_at DESC LIMIT 1`,
		models.VariantOriginal, substr,
	)))
}

const joinedImageColumns = `i.id, i.upload_id, i.variant, i.path, i.width, i.height, i.size_bytes, i.mime_type, i.created_at`

// FindOriginalImageByUploadOriginalFilename implements resolver step
// 1's third sub-strategy: the image's Upload has original_filename =
// basename(source).
func (s *pgxStore) FindOriginalImageByUploadOriginalFilename(ctx context.Context, name string) (*models.Image, error) {
	return notFoundToNil(scanImage(s.db.Pool.QueryRow(ctx,
		`SELECT `+joinedImageColumns+` FROM images i JOIN uploads u ON u.id = i.upload_id
		 WHERE i.variant = $1 AND u.original_filename = $2
		 ORDER BY i.created_at DESC LIMIT 1`,
		models.VariantOriginal, name,
	)))
}

// FindOriginalImageByUploadStoredFilenameContains implements resolver
// step 1's fourth sub-strategy: the image's Upload has stored_filename
// containing basename(source).
func (s *pgxStore) FindOriginalImageByUploadStoredFilenameContains(ctx context.Context, substr string) (*models.Image, error) {
	return notFoundToNil(scanImage(s.db.Pool.QueryRow(ctx,
		`SELECT `+joinedImageColumns+` FROM images i JOIN uploads u ON u.id = i.upload_id
		 WHERE i.variant = $1 AND u.stored_filename LIKE '%' || $2 || '%'
		 ORDER BY i.created_at DESC LIMIT 1`,
		models.VariantOriginal, substr,
	)))
}

func notFoundToNil(img *models.Image, err error) (*models.Image, error) {
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return img, nil
}

// DeleteImagesForUpload removes every Image row for uploadID,
// nulling any Product.primary_image_id references first so the
// foreign key's ON DELETE SET NULL rule, plus this explicit cleanup,
// together satisfy "an Image cannot outlive its Upload" without
// leaving dangling references in the interim.
func (s *pgxStore) DeleteImagesForUpload(ctx context.Context, uploadID string) error {
	rows, err := s.db.Pool.Query(ctx, `SELECT id FROM images WHERE upload_id = $1`, uploadID)
	if err != nil {
		return fmt.Errorf("%w: failed to list images for upload: %v", models.ErrStorageError, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.NullifyImageRef(ctx, id); err != nil {
			return err
		}
	}

	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM images WHERE upload_id = $1`, uploadID); err != nil {
		return fmt.Errorf("%w: failed to delete images: %v", models.ErrStorageError, err)
	}
	return nil
}
