// Package fileutil writes exported artifacts to disk.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams r into dst through a temporary file in the same
// directory, so dst is either complete or absent. It returns the number of
// bytes written and their SHA-256 digest.
func WriteAtomic(dst string, r io.Reader, mode os.FileMode) (int64, string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		cleanup()
		return 0, "", err
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return 0, "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, "", fmt.Errorf("rename into place: %w", err)
	}
	return written, hex.EncodeToString(hasher.Sum(nil)), nil
}
