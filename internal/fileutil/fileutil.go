package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, creating parent directories as needed. Readers never observe a
// partially written file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := verifyFile(tmpName, data); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// verifyFile compares size and SHA256 of the file at path against want.
func verifyFile(path string, want []byte) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen for verify: %w", err)
	}
	defer in.Close()

	hasher := sha256.New()
	written, err := io.Copy(hasher, in)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if written != int64(len(want)) {
		return fmt.Errorf("write size mismatch: expected %d bytes, found %d bytes", len(want), written)
	}
	expected := sha256.Sum256(want)
	if !bytes.Equal(hasher.Sum(nil), expected[:]) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	return nil
}
