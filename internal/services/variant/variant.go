// Package variant derives resized Image rows from a completed
// Upload's assembled blob, resampling with disintegration/imaging and
// decoding WebP input via golang.org/x/image/webp (the stdlib image
// package only ships jpeg/png/gif decoders).
package variant

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/webp"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/models"
	"github.com/anvil-lab/catalogue/internal/services/storage"
)

// jpegQuality is the encode quality used for every resized variant,
// per spec (quality 85).
const jpegQuality = 85

// Generator produces Image rows for a completed Upload.
type Generator struct {
	store   storage.BlobStore
	catalog catalogue.Store
	logger  *zap.Logger
}

// New builds a Generator.
func New(store storage.BlobStore, catalog catalogue.Store, logger *zap.Logger) *Generator {
	return &Generator{store: store, catalog: catalog, logger: logger}
}

// GenerateAll produces every variant in models.GeneratedVariants for
// upload, skipping any variant already recorded (idempotent per
// (upload_id, variant)). Failure to produce one variant does not
// prevent the others; each failure is logged and the function returns
// the first error only after attempting every variant.
func (g *Generator) GenerateAll(ctx context.Context, upload *models.Upload) ([]*models.Image, error) {
	if !models.SupportedImageMimeTypes[upload.MimeType] {
		return nil, fmt.Errorf("%w: unsupported mime type %q for variant generation", models.ErrValidation, upload.MimeType)
	}

	raw, err := g.store.Get(ctx, upload.BlobPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read assembled blob: %v", models.ErrStorageError, err)
	}

	src, err := decode(raw, upload.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", models.ErrValidation, err)
	}

	var (
		images []*models.Image
		firstErr error
	)

	for _, v := range models.GeneratedVariants {
		img, err := g.generateOne(ctx, upload, src, v)
		if err != nil {
			g.logger.Error("variant generation failed",
				zap.String("upload_id", upload.ID),
				zap.String("variant", string(v)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		images = append(images, img)
	}

	return images, firstErr
}

func (g *Generator) generateOne(ctx context.Context, upload *models.Upload, src image.Image, v models.Variant) (*models.Image, error) {
	if existing, err := g.catalog.GetImageByUploadVariant(ctx, upload.ID, v); err == nil && existing != nil {
		return existing, nil
	}

	resized := resizeForVariant(src, v)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode variant %s: %w", v, err)
	}
	encoded := buf.Bytes()

	path := fmt.Sprintf("uploads/variants/%s_%s.jpg", upload.ID, v)
	if err := g.store.Put(ctx, path, encoded); err != nil {
		return nil, fmt.Errorf("%w: failed to write variant %s: %v", models.ErrStorageError, v, err)
	}

	bounds := resized.Bounds()
	img := &models.Image{
		ID:        uuid.NewString(),
		UploadID:  upload.ID,
		Variant:   v,
		Path:      path,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		SizeBytes: int64(len(encoded)),
		MimeType:  "image/jpeg",
	}

	if err := g.catalog.SaveImage(ctx, img); err != nil {
		return nil, fmt.Errorf("failed to persist image row for variant %s: %w", v, err)
	}

	return img, nil
}

// resizeForVariant scales src down so its longer edge fits the
// variant's max dimension, preserving aspect ratio. Upscaling is
// forbidden: images already within bounds pass through unchanged.
func resizeForVariant(src image.Image, v models.Variant) image.Image {
	maxDim, capped := models.VariantMaxDimensions[v]
	if !capped {
		return src
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return src
	}

	if w >= h {
		return imaging.Resize(src, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(src, 0, maxDim, imaging.Lanczos)
}

func decode(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)

	if mimeType == "image/webp" {
		return webp.Decode(r)
	}

	img, _, err := image.Decode(r)
	return img, err
}
