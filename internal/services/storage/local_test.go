package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	ls, err := NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return ls
}

func TestLocalStorage_PutGetExists(t *testing.T) {
	ls := newTestLocalStorage(t)
	ctx := context.Background()

	exists, err := ls.Exists(ctx, "uploads/foo.bin")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, ls.Put(ctx, "uploads/foo.bin", []byte("payload")))

	exists, err = ls.Exists(ctx, "uploads/foo.bin")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := ls.Get(ctx, "uploads/foo.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestLocalStorage_GetMissing(t *testing.T) {
	ls := newTestLocalStorage(t)
	_, err := ls.Get(context.Background(), "uploads/missing.bin")
	assert.Error(t, err)
}

func TestLocalStorage_Delete(t *testing.T) {
	ls := newTestLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, ls.Put(ctx, "chunks/up1/chunk_0", []byte("x")))
	require.NoError(t, ls.Delete(ctx, "chunks/up1/chunk_0"))

	exists, err := ls.Exists(ctx, "chunks/up1/chunk_0")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting an already-absent path is not an error
	assert.NoError(t, ls.Delete(ctx, "chunks/up1/chunk_0"))
}

func TestLocalStorage_DeletePrefix(t *testing.T) {
	ls := newTestLocalStorage(t)
	ctx := context.Background()

	require.NoError(t, ls.Put(ctx, "chunks/up1/chunk_0", []byte("a")))
	require.NoError(t, ls.Put(ctx, "chunks/up1/chunk_1", []byte("b")))
	require.NoError(t, ls.Put(ctx, "uploads/other.bin", []byte("c")))

	require.NoError(t, ls.DeletePrefix(ctx, "chunks/up1"))

	exists, err := ls.Exists(ctx, "chunks/up1/chunk_0")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = ls.Exists(ctx, "uploads/other.bin")
	require.NoError(t, err)
	assert.True(t, exists)

	// repeated call against an already-empty prefix is safe
	assert.NoError(t, ls.DeletePrefix(ctx, "chunks/up1"))
}

func TestLocalStorage_PathOnFS(t *testing.T) {
	ls := newTestLocalStorage(t)
	ctx := context.Background()
	require.NoError(t, ls.Put(ctx, "uploads/foo.bin", []byte("payload")))

	path, err := ls.PathOnFS(ctx, "uploads/foo.bin")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestLocalStorage_PathEscape(t *testing.T) {
	ls := newTestLocalStorage(t)
	ctx := context.Background()

	_, err := ls.Get(ctx, "../../../etc/passwd")
	assert.Error(t, err)
}
