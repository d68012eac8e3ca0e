package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileVerified(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "0.png")

	content := []byte("hello world")
	if err := WriteFileVerified(dst, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %o, want 644", info.Mode().Perm())
	}
}

func TestWriteFileVerifiedReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "1.png")

	if err := WriteFileVerified(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileVerified(dst, []byte("new contents"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new contents" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the destination file, found %d entries", len(entries))
	}
}

func TestVerifyDetectsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verify(path, []byte("abd")); err == nil {
		t.Fatal("expected hash mismatch")
	}
	if err := verify(path, []byte("abcd")); err == nil {
		t.Fatal("expected size mismatch")
	}
}
