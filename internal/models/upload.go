package models

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// UploadStatus is the Upload state machine's current state.
//
// Transitions are monotonic: pending -> uploading -> completed | failed
// | cancelled. No state is re-entered once left.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
	UploadStatusCancelled  UploadStatus = "cancelled"
)

// IsTerminal reports whether status is one the state machine never
// leaves.
func (s UploadStatus) IsTerminal() bool {
	switch s {
	case UploadStatusCompleted, UploadStatusFailed, UploadStatusCancelled:
		return true
	default:
		return false
	}
}

// ChunkSet is the set of chunk indices received so far for an Upload.
// Indices are 0-based and bounded by TotalChunks.
type ChunkSet map[int]struct{}

// NewChunkSet builds a ChunkSet from a slice of indices.
func NewChunkSet(indices []int) ChunkSet {
	s := make(ChunkSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether index is present.
func (s ChunkSet) Has(index int) bool {
	_, ok := s[index]
	return ok
}

// Slice returns the set's members in ascending order.
func (s ChunkSet) Slice() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Missing returns, in ascending order, the indices in [0, total) not
// present in the set.
func (s ChunkSet) Missing(total int) []int {
	out := make([]int, 0, total-len(s))
	for i := 0; i < total; i++ {
		if !s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// Upload represents one in-progress or finished blob, per spec section
// 3. UploadedChunks must always equal len(UploadedChunkSet); enforced by
// the Upload Engine, not by this struct.
type Upload struct {
	ID                string       `db:"id" json:"id"`
	OriginalFilename  string       `db:"original_filename" json:"original_filename"`
	StoredFilename    string       `db:"stored_filename" json:"stored_filename"`
	MimeType          string       `db:"mime_type" json:"mime_type,omitempty"`
	TotalSize         int64        `db:"total_size" json:"total_size"`
	TotalChunks       int          `db:"total_chunks" json:"total_chunks"`
	UploadedChunks    int          `db:"uploaded_chunks" json:"uploaded_chunks"`
	ChecksumSHA256    string       `db:"checksum_sha256" json:"checksum_sha256"`
	Status            UploadStatus `db:"status" json:"status"`
	UploadedChunkSet  ChunkSet     `db:"-" json:"-"`
	FailureReason     string       `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
	CompletedAt       *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// Progress returns the completion percentage, rounded to two decimals.
func (u *Upload) Progress() float64 {
	if u.TotalChunks == 0 {
		return 0
	}
	p := float64(u.UploadedChunks) / float64(u.TotalChunks) * 100
	return roundTo(p, 2)
}

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

// ChunkPath returns the Blob Store path for one chunk of this upload.
func (u *Upload) ChunkPath(index int) string {
	return ChunkPathFor(u.ID, index)
}

// ChunkPathFor builds the chunk path without requiring an Upload value,
// for callers that hold only the upload ID (e.g. receive_chunk, which
// takes the ID from the request).
func ChunkPathFor(uploadID string, index int) string {
	return "chunks/" + uploadID + "/chunk_" + strconv.Itoa(index)
}

// ChunkPrefix returns the transient prefix holding all chunks for an
// upload, suitable for BlobStore.DeletePrefix.
func ChunkPrefix(uploadID string) string {
	return "chunks/" + uploadID
}

// BlobPath returns the durable path of the assembled blob.
func (u *Upload) BlobPath() string {
	return "uploads/" + u.StoredFilename
}
