package checksum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex([]byte("hello world"))
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	assert.Equal(t, want, got)
}

func TestSHA256HexFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	got, err := SHA256HexFile(path)
	require.NoError(t, err)
	assert.Equal(t, SHA256Hex([]byte("hello world")), got)
}

func TestSHA256HexFile_NotFound(t *testing.T) {
	_, err := SHA256HexFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical lowercase", "abcd1234", "abcd1234", true},
		{"case insensitive match", "ABCD1234", "abcd1234", true},
		{"different content", "abcd1234", "abcd5678", false},
		{"different length", "abcd", "abcd1234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestValidHexDigest(t *testing.T) {
	valid := strings.Repeat("a", 64)
	assert.True(t, ValidHexDigest(valid))
	assert.True(t, ValidHexDigest(strings.ToUpper(valid)))
	assert.False(t, ValidHexDigest(strings.Repeat("a", 63)))
	assert.False(t, ValidHexDigest(strings.Repeat("g", 64)))
}
