package models

import "time"

// ImportStatus is an ImportLog's lifecycle state.
type ImportStatus string

const (
	ImportStatusPending            ImportStatus = "pending"
	ImportStatusProcessing         ImportStatus = "processing"
	ImportStatusCompleted          ImportStatus = "completed"
	ImportStatusFailed             ImportStatus = "failed"
	ImportStatusPartiallyCompleted ImportStatus = "partially_completed"
)

// RowError records the validation errors found on one CSV row.
type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// ImportLog is the audit record for one CSV import run. On a terminal
// status, Imported+Updated+Invalid+Duplicate must equal Total.
type ImportLog struct {
	ID                     string       `db:"id" json:"id"`
	Filename               string       `db:"filename" json:"filename"`
	FileHash               string       `db:"file_hash" json:"file_hash,omitempty"`
	Status                 ImportStatus `db:"status" json:"status"`
	TotalRows              int          `db:"total_rows" json:"total_rows"`
	ImportedRows           int          `db:"imported_rows" json:"imported_rows"`
	UpdatedRows            int          `db:"updated_rows" json:"updated_rows"`
	InvalidRows            int          `db:"invalid_rows" json:"invalid_rows"`
	DuplicateRows          int          `db:"duplicate_rows" json:"duplicate_rows"`
	ErrorDetails           []RowError   `db:"error_details" json:"error_details,omitempty"`
	StartedAt              time.Time    `db:"started_at" json:"started_at"`
	CompletedAt            *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	ProcessingTimeSeconds  float64      `db:"processing_time_seconds" json:"processing_time_seconds"`
}

// Processed is the count of rows that resulted in a catalogue write.
func (l *ImportLog) Processed() int {
	return l.ImportedRows + l.UpdatedRows
}

// SuccessRate is the percentage of total rows processed, two-decimal
// rounded, zero when there were no rows at all.
func (l *ImportLog) SuccessRate() float64 {
	if l.TotalRows == 0 {
		return 0
	}
	return roundTo(float64(l.Processed())/float64(l.TotalRows)*100, 2)
}
