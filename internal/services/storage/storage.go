// Package storage provides a content-addressed, path-keyed byte store
// backing chunk staging and durable blob retention, with local
// filesystem, Google Cloud Storage, and S3 backends selectable by
// configuration.
package storage

import (
	"context"
	"io"
)

// BlobStore is a path-keyed byte store. Paths use two reserved
// prefixes: "chunks/<upload_id>/chunk_<i>" (transient) and
// "uploads/<stored_filename>" (durable). Put is whole-object and must
// be atomic to concurrent readers.
type BlobStore interface {
	// Put writes data at path, replacing any existing object there.
	Put(ctx context.Context, path string, data []byte) error

	// Get reads the full contents stored at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// GetReader opens a stream over the contents stored at path, for
	// callers that want to avoid buffering large blobs in memory.
	GetReader(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether path currently holds an object.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes path. It is not an error if path does not exist.
	Delete(ctx context.Context, path string) error

	// PathOnFS returns a local filesystem path for readers that need
	// direct OS-level access (e.g. streaming whole-file checksum
	// verification). Backends without a filesystem representation
	// return ErrNoLocalPath.
	PathOnFS(ctx context.Context, path string) (string, error)

	// DeletePrefix removes every object whose path starts with prefix.
	// Safe to call repeatedly against an already-empty prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// ErrNoLocalPath is returned by PathOnFS on backends that do not
// expose objects as local files.
var ErrNoLocalPath = errNoLocalPath{}

type errNoLocalPath struct{}

func (errNoLocalPath) Error() string { return "blob store has no local filesystem path" }
