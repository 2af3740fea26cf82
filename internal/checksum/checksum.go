// Package checksum provides SHA-256 hashing and constant-time
// comparison for chunk and whole-file integrity verification, the same
// primitive the teacher's upload and validation services compute
// inline with crypto/sha256 — pulled out here because both the Upload
// Engine and the Image-Reference Resolver need it.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strings"
)

// hexPattern matches a lowercase 64-character hex SHA-256 digest.
var hexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256HexFile streams path through SHA-256 without loading it into
// memory, for whole-file verification of assembled blobs that may be
// multiple gigabytes.
func SHA256HexFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return SHA256HexReader(f)
}

// SHA256HexReader streams r through SHA-256.
func SHA256HexReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal compares two hex digests in constant time after lowercasing
// both, per spec section 4.2 ("Hex input is lowercased for
// comparison").
func Equal(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ValidHexDigest reports whether s is a 64-character lowercase hex
// SHA-256 digest, case-insensitively (callers should lowercase before
// storing, per spec section 4.3).
func ValidHexDigest(s string) bool {
	return hexPattern.MatchString(strings.ToLower(s))
}
