package csvimport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/models"
)

// Resolver is the Image-Reference Resolver surface the Import Engine
// depends on; *resolver.Resolver satisfies it. Declared here, not
// imported, so engine tests can substitute a fake without constructing
// the Resolver's own Upload Engine and Variant Generator dependencies.
type Resolver interface {
	Resolve(ctx context.Context, source string) (imageID string, err error)
}

// Options controls one import(file, options) call.
type Options struct {
	ValidateOnly   bool
	SkipInvalid    bool
	UpdateExisting bool
}

// DefaultOptions matches the spec's recognized defaults: skip_invalid
// and update_existing both true, validate_only false.
func DefaultOptions() Options {
	return Options{SkipInvalid: true, UpdateExisting: true}
}

// Result is the ImportResult returned from Import.
type Result struct {
	Total        int              `json:"total"`
	Imported     int              `json:"imported"`
	Updated      int              `json:"updated"`
	Invalid      int              `json:"invalid"`
	Duplicates   int              `json:"duplicates"`
	Processed    int              `json:"processed"`
	SuccessRate  float64          `json:"success_rate"`
	Errors       []models.RowError `json:"errors"`
	ImportLogID  string           `json:"import_log_id"`
}

// Engine is the Import Engine.
type Engine struct {
	catalog  catalogue.Store
	resolver Resolver
	logger   *zap.Logger
}

// New builds an Engine.
func New(catalog catalogue.Store, resolver Resolver, logger *zap.Logger) *Engine {
	return &Engine{catalog: catalog, resolver: resolver, logger: logger}
}

// Validate implements the validate(file) operation: header-only check.
func Validate(r io.Reader) (valid bool, missingColumns []string) {
	return ValidateHeader(r)
}

// Import implements the import(file, options) operation described in
// section 4.7: it streams rows, validating and upserting each one
// inside its own transaction, and maintains an ImportLog audit trail
// throughout.
func (e *Engine) Import(ctx context.Context, filename string, data []byte, opts Options) (*Result, error) {
	logEntry := &models.ImportLog{
		ID:        uuid.NewString(),
		Filename:  filename,
		FileHash:  fileHash(data),
		Status:    models.ImportStatusPending,
		StartedAt: time.Now(),
	}
	if !opts.ValidateOnly {
		if err := e.catalog.CreateImportLog(ctx, logEntry); err != nil {
			return nil, err
		}
	}
	logEntry.Status = models.ImportStatusProcessing

	rdr, err := newReader(byteReader(data))
	if err != nil {
		logEntry.Status = models.ImportStatusFailed
		logEntry.ErrorDetails = []models.RowError{{Row: 1, Errors: []string{err.Error()}}}
		e.finalize(ctx, logEntry, opts)
		return nil, err
	}

	result := &Result{ImportLogID: logEntry.ID}

	for {
		raw, lineNum, err := rdr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logEntry.Status = models.ImportStatusFailed
			logEntry.ErrorDetails = append(logEntry.ErrorDetails, models.RowError{Row: lineNum, Errors: []string{err.Error()}})
			e.finalize(ctx, logEntry, opts)
			return nil, err
		}

		result.Total++
		logEntry.TotalRows = result.Total

		parsed, rowErrs := validateRow(raw)
		if rowErrs != nil {
			result.Invalid++
			logEntry.InvalidRows = result.Invalid
			rowErr := models.RowError{Row: lineNum, Errors: rowErrs}
			result.Errors = append(result.Errors, rowErr)
			logEntry.ErrorDetails = append(logEntry.ErrorDetails, rowErr)
			if !opts.SkipInvalid {
				logEntry.Status = models.ImportStatusFailed
				e.finalize(ctx, logEntry, opts)
				return result, fmt.Errorf("%w: row %d: %v", models.ErrValidation, lineNum, rowErrs)
			}
			continue
		}

		if opts.ValidateOnly {
			continue
		}

		if err := e.upsertRow(ctx, parsed, opts, result); err != nil {
			return nil, err
		}
		logEntry.ImportedRows = result.Imported
		logEntry.UpdatedRows = result.Updated
		logEntry.DuplicateRows = result.Duplicates
	}

	result.Processed = result.Imported + result.Updated
	result.SuccessRate = successRate(result.Processed, result.Total)

	if logEntry.InvalidRows == 0 {
		logEntry.Status = models.ImportStatusCompleted
	} else {
		logEntry.Status = models.ImportStatusPartiallyCompleted
	}
	e.finalize(ctx, logEntry, opts)

	return result, nil
}

// upsertRow applies one validated row's product write and, if it
// carries a primary_image reference, invokes the Resolver.
func (e *Engine) upsertRow(ctx context.Context, r *row, opts Options, result *Result) error {
	existing, err := e.catalog.GetProductBySKU(ctx, r.SKU)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	var sku string
	switch {
	case existing != nil && !opts.UpdateExisting:
		result.Duplicates++
		sku = r.SKU
	case existing != nil && opts.UpdateExisting:
		if err := e.catalog.WithTransaction(ctx, func(tx catalogue.Tx) error {
			_, err := e.catalog.UpsertProduct(ctx, tx, r.toProduct())
			return err
		}); err != nil {
			return err
		}
		result.Updated++
		sku = r.SKU
	default:
		if err := e.catalog.WithTransaction(ctx, func(tx catalogue.Tx) error {
			_, err := e.catalog.UpsertProduct(ctx, tx, r.toProduct())
			return err
		}); err != nil {
			return err
		}
		result.Imported++
		sku = r.SKU
	}

	if r.PrimaryImage != "" && (existing == nil || opts.UpdateExisting) {
		imageID, err := e.resolver.Resolve(ctx, r.PrimaryImage)
		if err != nil {
			e.logger.Warn("image resolution failed for row", zap.String("sku", sku), zap.Error(err))
			return nil
		}
		if imageID != "" {
			if err := e.catalog.WithTransaction(ctx, func(tx catalogue.Tx) error {
				return e.catalog.AttachPrimaryImage(ctx, tx, sku, imageID)
			}); err != nil {
				e.logger.Warn("failed to attach primary image", zap.String("sku", sku), zap.Error(err))
			}
		}
	}
	return nil
}

func (e *Engine) finalize(ctx context.Context, l *models.ImportLog, opts Options) {
	if opts.ValidateOnly {
		return
	}
	now := time.Now()
	l.CompletedAt = &now
	l.ProcessingTimeSeconds = math.Max(0, now.Sub(l.StartedAt).Seconds())
	if err := e.catalog.UpdateImportLog(ctx, l); err != nil {
		e.logger.Warn("failed to finalize import log", zap.String("import_log_id", l.ID), zap.Error(err))
	}
}

func successRate(processed, total int) float64 {
	if total == 0 {
		return 0
	}
	v := float64(processed) / float64(total) * 100
	mult := math.Pow(10, 2)
	return math.Round(v*mult) / mult
}

func fileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func byteReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
