package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File computes the SHA-256 hex digest of the file at path.
// The algorithm is fixed: existing manifests depend on digest
// stability across runs.
func File(path string) (string, error) {
	return FileBuffer(path, nil)
}

// FileBuffer is File with a caller-owned copy buffer, for
// workers that hash many files in a row.
func FileBuffer(path string, buf []byte) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if buf == nil {
		_, err = io.Copy(h, f)
	} else {
		_, err = io.CopyBuffer(h, f, buf)
	}
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
