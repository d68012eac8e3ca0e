package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// PNGBytes is a minimal PNG signature and header chunk, enough for content
// sniffing to report image/png.
var PNGBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WritePose places a pose image under dir at the catalog's asset path and
// returns the file path.
func WritePose(t testing.TB, dir, category string, index int) string {
	t.Helper()

	path := filepath.Join(dir, category, fmt.Sprintf("%s_%02d.png", category, index))
	WriteFile(t, path, PNGBytes)
	return path
}
