package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/anvil-lab/catalogue/internal/models"
)

const importLogColumns = `id, filename, file_hash, status, total_rows, imported_rows, updated_rows,
	invalid_rows, duplicate_rows, error_details, started_at, completed_at, processing_time_seconds`

func scanImportLog(row pgx.Row) (*models.ImportLog, error) {
	var l models.ImportLog
	var errDetails []byte
	err := row.Scan(&l.ID, &l.Filename, &l.FileHash, &l.Status, &l.TotalRows, &l.ImportedRows,
		&l.UpdatedRows, &l.InvalidRows, &l.DuplicateRows, &errDetails, &l.StartedAt, &l.CompletedAt,
		&l.ProcessingTimeSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("import log: %w", models.ErrNotFound)
		}
		return nil, err
	}
	if len(errDetails) > 0 {
		if err := json.Unmarshal(errDetails, &l.ErrorDetails); err != nil {
			return nil, fmt.Errorf("failed to decode error_details: %w", err)
		}
	}
	return &l, nil
}

// CreateImportLog inserts a new ImportLog row in status pending.
func (s *pgxStore) CreateImportLog(ctx context.Context, l *models.ImportLog) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO import_logs (id, filename, file_hash, status, total_rows, imported_rows,
			updated_rows, invalid_rows, duplicate_rows, error_details, started_at, completed_at,
			processing_time_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), $11, $12)`,
		l.ID, l.Filename, l.FileHash, l.Status, l.TotalRows, l.ImportedRows, l.UpdatedRows,
		l.InvalidRows, l.DuplicateRows, mustMarshalErrors(l.ErrorDetails), l.CompletedAt, l.ProcessingTimeSeconds,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert import log: %v", models.ErrStorageError, err)
	}
	return nil
}

// UpdateImportLog persists the mutable fields of l — counters, status,
// error details, and completion timestamp.
func (s *pgxStore) UpdateImportLog(ctx context.Context, l *models.ImportLog) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE import_logs SET status = $1, total_rows = $2, imported_rows = $3, updated_rows = $4,
			invalid_rows = $5, duplicate_rows = $6, error_details = $7, completed_at = $8,
			processing_time_seconds = $9
		 WHERE id = $10`,
		l.Status, l.TotalRows, l.ImportedRows, l.UpdatedRows, l.InvalidRows, l.DuplicateRows,
		mustMarshalErrors(l.ErrorDetails), l.CompletedAt, l.ProcessingTimeSeconds, l.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update import log: %v", models.ErrStorageError, err)
	}
	return nil
}

// GetImportLog fetches one ImportLog by ID.
func (s *pgxStore) GetImportLog(ctx context.Context, id string) (*models.ImportLog, error) {
	return scanImportLog(s.db.Pool.QueryRow(ctx, `SELECT `+importLogColumns+` FROM import_logs WHERE id = $1`, id))
}

// ListImportLogs returns a page of ImportLog rows, most recent first,
// and the total row count for pagination.
func (s *pgxStore) ListImportLogs(ctx context.Context, page, perPage int) ([]*models.ImportLog, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var total int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM import_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to count import logs: %v", models.ErrStorageError, err)
	}

	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+importLogColumns+` FROM import_logs ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
		perPage, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list import logs: %v", models.ErrStorageError, err)
	}
	defer rows.Close()

	var logs []*models.ImportLog
	for rows.Next() {
		l, err := scanImportLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// ImportStatisticsSince aggregates ImportLog rows started within the
// trailing window of days.
func (s *pgxStore) ImportStatisticsSince(ctx context.Context, days int) (*ImportStatistics, error) {
	var stats ImportStatistics
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_rows), 0), COALESCE(SUM(imported_rows), 0),
			COALESCE(SUM(updated_rows), 0), COALESCE(SUM(invalid_rows), 0), COALESCE(SUM(duplicate_rows), 0)
		 FROM import_logs WHERE started_at >= NOW() - ($1 || ' days')::interval`,
		days,
	).Scan(&stats.TotalImports, &stats.TotalRows, &stats.TotalImported, &stats.TotalUpdated,
		&stats.TotalInvalid, &stats.TotalDuplicate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to aggregate import statistics: %v", models.ErrStorageError, err)
	}

	if stats.TotalRows > 0 {
		processed := stats.TotalImported + stats.TotalUpdated
		stats.AverageSuccess = roundTo(float64(processed)/float64(stats.TotalRows)*100, 2)
	}
	return &stats, nil
}

func mustMarshalErrors(errs []models.RowError) []byte {
	if len(errs) == 0 {
		return []byte("[]")
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return []byte("[]")
	}
	return b
}

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}
