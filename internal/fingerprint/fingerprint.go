// Package fingerprint computes the content identity of an uploaded file.
//
// A fingerprint is the lower-case hex BLAKE3-256 digest of the file's
// bytes. It is computed over the byte stream, not over chunk hashes, so
// the value does not depend on the chunk size used to split the file.
package fingerprint

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Hasher accumulates bytes in order and yields a fingerprint.
type Hasher struct {
	h *blake3.Hasher
}

func New() *Hasher {
	return &Hasher{h: blake3.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Fingerprint returns the hex digest of everything written so far.
func (h *Hasher) Fingerprint() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Of hashes a whole stream.
func Of(r io.Reader) (string, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return h.Fingerprint(), nil
}

// OfBytes hashes a byte slice.
func OfBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
