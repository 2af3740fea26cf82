package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/checksum"
	"github.com/anvil-lab/catalogue/internal/models"
)

func newTestEngine() (*Engine, *fakeCatalog, *fakeBlobStore) {
	cat := newFakeCatalog()
	store := newFakeBlobStore()
	return New(cat, store, nil, zap.NewNop()), cat, store
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

const helloworldChecksum = "936a185caaa266bb9cbe981e9e05cb78cd732b0b3280eb944412bb6f8f8f07af"

func TestInitialize_ValidationBounds(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.Initialize(ctx, "f.bin", 0, 10, helloworldChecksum, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = engine.Initialize(ctx, "f.bin", 2, 0, helloworldChecksum, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = engine.Initialize(ctx, "f.bin", 2, 10, "not-hex", "")
	assert.ErrorIs(t, err, models.ErrValidation)

	// implied chunk size below 5 KiB
	_, err = engine.Initialize(ctx, "f.bin", 10, 10, helloworldChecksum, "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestInitialize_Deduplication(t *testing.T) {
	engine, cat, _ := newTestEngine()
	ctx := context.Background()

	existing := &models.Upload{
		ID:             "existing",
		ChecksumSHA256: helloworldChecksum,
		Status:         models.UploadStatusCompleted,
		TotalChunks:    2,
		TotalSize:      10,
		UploadedChunkSet: models.NewChunkSet([]int{0, 1}),
	}
	require.NoError(t, cat.CreateUpload(ctx, existing))
	cat.uploads["existing"].Status = models.UploadStatusCompleted

	u, err := engine.Initialize(ctx, "f.bin", 2000, 10000*1024, helloworldChecksum, "")
	require.NoError(t, err)
	assert.Equal(t, "existing", u.ID)
}

// TestS1_HappyPathTwoChunkUpload exercises spec scenario S1.
func TestS1_HappyPathTwoChunkUpload(t *testing.T) {
	engine, _, store := newTestEngine()
	ctx := context.Background()

	u, err := engine.Initialize(ctx, "greeting.txt", 2, 10, helloworldChecksum, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusPending, u.Status)

	_, err = engine.ReceiveChunk(ctx, u.ID, 0, b64("hello"), checksum.SHA256Hex([]byte("hello")))
	require.NoError(t, err)

	res, err := engine.ReceiveChunk(ctx, u.ID, 1, b64("world"), checksum.SHA256Hex([]byte("world")))
	require.NoError(t, err)
	assert.Equal(t, 2, res.UploadedChunks)
	assert.Equal(t, models.UploadStatusUploading, res.Status)

	complete, err := engine.Complete(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCompleted, complete.Upload.Status)
	assert.NotNil(t, complete.Upload.CompletedAt)

	blob, err := store.Get(ctx, complete.Upload.BlobPath())
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(blob))

	exists, err := store.Exists(ctx, models.ChunkPathFor(u.ID, 0))
	require.NoError(t, err)
	assert.False(t, exists, "chunk directory must be deleted on completion")
}

// TestS2_IdempotentChunkResend exercises spec scenario S2.
func TestS2_IdempotentChunkResend(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	u, err := engine.Initialize(ctx, "greeting.txt", 2, 10, helloworldChecksum, "text/plain")
	require.NoError(t, err)

	first, err := engine.ReceiveChunk(ctx, u.ID, 0, b64("hello"), checksum.SHA256Hex([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, 1, first.UploadedChunks)

	second, err := engine.ReceiveChunk(ctx, u.ID, 0, b64("hello"), checksum.SHA256Hex([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, 1, second.UploadedChunks, "re-send of an already-received chunk must not increment the count")
}

// TestS3_ChecksumMismatchOnComplete exercises spec scenario S3.
func TestS3_ChecksumMismatchOnComplete(t *testing.T) {
	engine, _, store := newTestEngine()
	ctx := context.Background()

	falseChecksum := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	u, err := engine.Initialize(ctx, "greeting.txt", 2, 10, falseChecksum, "text/plain")
	require.NoError(t, err)

	_, err = engine.ReceiveChunk(ctx, u.ID, 0, b64("hello"), checksum.SHA256Hex([]byte("hello")))
	require.NoError(t, err)
	_, err = engine.ReceiveChunk(ctx, u.ID, 1, b64("world"), checksum.SHA256Hex([]byte("world")))
	require.NoError(t, err)

	_, err = engine.Complete(ctx, u.ID, false)
	assert.ErrorIs(t, err, models.ErrChecksumMismatch)

	exists, err := store.Exists(ctx, u.BlobPath())
	require.NoError(t, err)
	assert.False(t, exists, "assembled blob must be deleted on mismatch")

	_, err = engine.Complete(ctx, u.ID, false)
	assert.ErrorIs(t, err, models.ErrStateConflict)
}

// TestS4_ResumeAfterPartialUpload exercises spec scenario S4.
func TestS4_ResumeAfterPartialUpload(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	u, err := engine.Initialize(ctx, "f.bin", 5, 5*10*1024, helloworldChecksum, "")
	require.NoError(t, err)

	for _, idx := range []int{0, 2, 4} {
		data := []byte("chunkdata0")
		_, err := engine.ReceiveChunk(ctx, u.ID, idx, b64(string(data)), checksum.SHA256Hex(data))
		require.NoError(t, err)
	}

	result, err := engine.Resume(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, result.CanResume)
	assert.Equal(t, []int{0, 2, 4}, result.UploadedChunkIndices)
	assert.Equal(t, []int{1, 3}, result.MissingChunkIndices)
	assert.InDelta(t, 60.0, result.Progress, 0.001)
}

func TestReceiveChunk_ChecksumMismatch(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	u, err := engine.Initialize(ctx, "f.bin", 2, 10, helloworldChecksum, "")
	require.NoError(t, err)

	_, err = engine.ReceiveChunk(ctx, u.ID, 0, b64("hello"), "deadbeef")
	assert.True(t, errors.Is(err, models.ErrChecksumMismatch))
}

func TestReceiveChunk_MalformedBase64(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	u, err := engine.Initialize(ctx, "f.bin", 2, 10, helloworldChecksum, "")
	require.NoError(t, err)

	_, err = engine.ReceiveChunk(ctx, u.ID, 0, "not-base64!!!", "irrelevant")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCancel(t *testing.T) {
	engine, _, store := newTestEngine()
	ctx := context.Background()

	u, err := engine.Initialize(ctx, "f.bin", 2, 10, helloworldChecksum, "")
	require.NoError(t, err)
	_, err = engine.ReceiveChunk(ctx, u.ID, 0, b64("hello"), checksum.SHA256Hex([]byte("hello")))
	require.NoError(t, err)

	ok, err := engine.Cancel(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := engine.Status(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCancelled, status.Status)
	assert.Equal(t, "Cancelled", status.FailureReason)

	exists, err := store.Exists(ctx, models.ChunkPathFor(u.ID, 0))
	require.NoError(t, err)
	assert.False(t, exists)

	// cancelling again is a no-op
	ok, err = engine.Cancel(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
