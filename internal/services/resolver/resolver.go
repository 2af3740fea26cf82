// Package resolver implements the Image-Reference Resolver: turning a
// primary_image string from a CSV row into an attached Image, by trying
// progressively more expensive strategies and taking the first hit.
package resolver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/checksum"
	"github.com/anvil-lab/catalogue/internal/models"
	"github.com/anvil-lab/catalogue/internal/services/upload"
)

// Resolver implements the four-step lookup pipeline from the Image
// Reference spec: Image table, Upload table, local filesystem path,
// then remote URL/other scheme. Steps 3 and 4 run their ingestion
// through the Upload Engine with variant generation requested, so the
// Resolver itself never touches the Variant Generator directly.
type Resolver struct {
	catalog catalogue.Store
	uploads *upload.Engine
	logger  *zap.Logger
}

// New builds a Resolver.
func New(catalog catalogue.Store, uploads *upload.Engine, logger *zap.Logger) *Resolver {
	return &Resolver{catalog: catalog, uploads: uploads, logger: logger}
}

// sourceKind classifies a primary_image string so Resolve can pick the
// right pipeline step when steps 1 and 2 both miss.
type sourceKind int

const (
	sourceKindLocalPath sourceKind = iota
	sourceKindRemote
)

func classify(source string) sourceKind {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		return sourceKindRemote
	}
	if strings.HasPrefix(source, "/") || strings.Contains(source, `:\`) {
		return sourceKindLocalPath
	}
	return sourceKindRemote
}

// Resolve runs the four-step pipeline and returns the Image ID to
// attach. Steps 3 and 4 run synchronously, so a nil error comes with
// the ID of an Image that already exists; nothing is scheduled for
// later attachment.
func (r *Resolver) Resolve(ctx context.Context, source string) (imageID string, err error) {
	base := path.Base(source)

	if img, err := r.lookupImageTable(ctx, source, base); err != nil {
		return "", err
	} else if img != nil {
		return img.ID, nil
	}

	if img, err := r.lookupUploadTable(ctx, base); err != nil {
		return "", err
	} else if img != nil {
		return img.ID, nil
	}

	switch classify(source) {
	case sourceKindLocalPath:
		return r.ingestLocalPath(ctx, source)
	default:
		return r.ingestRemote(ctx, source)
	}
}

// lookupImageTable implements step 1: four ordered sub-strategies
// against the Image table, each falling through to the next on a miss.
func (r *Resolver) lookupImageTable(ctx context.Context, source, base string) (*models.Image, error) {
	if img, err := r.catalog.FindOriginalImageByPath(ctx, source); err != nil {
		return nil, err
	} else if img != nil {
		return img, nil
	}
	if img, err := r.catalog.FindOriginalImageByPathContains(ctx, base); err != nil {
		return nil, err
	} else if img != nil {
		return img, nil
	}
	if img, err := r.catalog.FindOriginalImageByUploadOriginalFilename(ctx, base); err != nil {
		return nil, err
	} else if img != nil {
		return img, nil
	}
	return r.catalog.FindOriginalImageByUploadStoredFilenameContains(ctx, base)
}

// lookupUploadTable implements step 2: find a completed Upload by
// filename and materialize an original-variant Image for it.
func (r *Resolver) lookupUploadTable(ctx context.Context, base string) (*models.Image, error) {
	u, err := r.catalog.GetCompletedUploadByOriginalFilename(ctx, base)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = r.catalog.GetCompletedUploadByStoredFilenameContains(ctx, base)
		if err != nil {
			return nil, err
		}
	}
	if u == nil {
		return nil, nil
	}

	if existing, err := r.catalog.GetImageByUploadVariant(ctx, u.ID, models.VariantOriginal); err == nil && existing != nil {
		return existing, nil
	}

	img := &models.Image{
		ID:       uuid.NewString(),
		UploadID: u.ID,
		Variant:  models.VariantOriginal,
		Path:     u.BlobPath(),
		MimeType: u.MimeType,
	}
	if err := r.catalog.SaveImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// ingestLocalPath implements step 3: run an on-disk file through the
// Upload Engine synchronously so it becomes a first-class Image.
//
// TODO: chunk files larger than 10 MiB instead of reading them whole;
// today every local-path ingestion is a single-chunk upload.
func (r *Resolver) ingestLocalPath(ctx context.Context, filePath string) (string, error) {
	data, err := readLocalFile(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read local image path %s: %v", models.ErrValidation, filePath, err)
	}

	img, err := r.runSingleChunkUpload(ctx, path.Base(filePath), data)
	if err != nil {
		return "", err
	}
	return img.ID, nil
}

// ingestRemote implements step 4. Fetching is expected to be dispatched
// to the background worker pool described in the concurrency model;
// here it runs inline because the core has no queue of its own, and the
// caller (Import Engine) treats a resolution error as non-fatal to the
// row that referenced it.
func (r *Resolver) ingestRemote(ctx context.Context, source string) (string, error) {
	data, mimeType, err := fetchRemote(ctx, source)
	if err != nil {
		return "", fmt.Errorf("%w: failed to fetch remote image %s: %v", models.ErrTransient, source, err)
	}

	img, err := r.runSingleChunkUploadWithMime(ctx, path.Base(source), data, mimeType)
	if err != nil {
		return "", err
	}
	return img.ID, nil
}

func (r *Resolver) runSingleChunkUpload(ctx context.Context, filename string, data []byte) (*models.Image, error) {
	return r.runSingleChunkUploadWithMime(ctx, filename, data, "")
}

func (r *Resolver) runSingleChunkUploadWithMime(ctx context.Context, filename string, data []byte, mimeType string) (*models.Image, error) {
	if mimeType == "" {
		mimeType = guessMimeType(filename)
	}

	sum := checksum.SHA256Hex(data)
	u, err := r.uploads.Initialize(ctx, filename, 1, int64(len(data)), sum, mimeType)
	if err != nil {
		return nil, err
	}

	if u.Status != models.UploadStatusCompleted {
		if _, err := r.uploads.ReceiveChunk(ctx, u.ID, 0, base64.StdEncoding.EncodeToString(data), sum); err != nil {
			return nil, err
		}
		if _, err := r.uploads.Complete(ctx, u.ID, true); err != nil {
			return nil, err
		}
	}

	img, err := r.catalog.GetImageByUploadVariant(ctx, u.ID, models.VariantOriginal)
	if err != nil {
		return nil, err
	}
	return img, nil
}
