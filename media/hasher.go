package media

import (
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// HashingError means the source bytes could not be read; it is fatal to the
// ingest call that triggered it.
type HashingError struct {
	Err error
}

func (e *HashingError) Error() string {
	return fmt.Sprintf("content hashing failed: %v", e.Err)
}

func (e *HashingError) Unwrap() error { return e.Err }

// Fingerprint computes the content digest used as the dedup key. The digest
// is a hex-encoded BLAKE2b-256 of the raw bytes; identical input always
// yields the identical fingerprint.
func Fingerprint(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to initialize digest: %w", err)
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", &HashingError{Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintBytes is Fingerprint over an in-memory buffer.
func FingerprintBytes(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
