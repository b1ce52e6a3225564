package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	data := []byte("scanned sheet bytes")

	a, err := Fingerprint(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b := FingerprintBytes(data)
	if a != b {
		t.Errorf("reader and byte fingerprints differ: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}

	if FingerprintBytes([]byte("other bytes")) == b {
		t.Error("different inputs share a fingerprint")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestFingerprintWrapsReadFailure(t *testing.T) {
	_, err := Fingerprint(failingReader{})
	var hashErr *HashingError
	if !errors.As(err, &hashErr) {
		t.Fatalf("error = %v, want HashingError", err)
	}
	if !strings.Contains(hashErr.Error(), "disk gone") {
		t.Errorf("HashingError lost the cause: %v", hashErr)
	}
}
