package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileVerified writes data to a temp file next to dst, checks the bytes
// on disk against a SHA256 of data, and renames it into place. dst is never
// left partially written.
func WriteFileVerified(dst string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := verify(tmpPath, data); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func verify(path string, want []byte) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	hasher := sha256.New()
	written, err := io.Copy(hasher, in)
	if err != nil {
		return err
	}
	if written != int64(len(want)) {
		return fmt.Errorf("write size mismatch: expected %d bytes, found %d bytes", len(want), written)
	}
	sum := sha256.Sum256(want)
	if !bytes.Equal(hasher.Sum(nil), sum[:]) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	return nil
}
