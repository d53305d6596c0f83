package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile writes data to path, creating parent directories, and sets its
// modification time to mtime when non-zero so "latest object" lookups are
// deterministic.
func WriteFile(t testing.TB, path string, data []byte, mtime time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
}

// FakeMP3 builds a minimal MPEG frame-like payload tagged with marker so
// merged output can be checked for ordering.
func FakeMP3(marker string) []byte {
	frame := []byte{0xFF, 0xFB, 0x90, 0x64}
	return append(frame, []byte(marker)...)
}
