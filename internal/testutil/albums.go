package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// NewTestRoot creates a storage root inside t.TempDir().
func NewTestRoot(t *testing.T) *fs.Root {
	t.Helper()
	r, err := fs.NewRoot(filepath.Join(t.TempDir(), "albums"))
	if err != nil {
		t.Fatalf("failed to create storage root: %v", err)
	}
	return r
}

// MakeAlbum creates the folder rel under root holding the given image files
// and returns its Dir. File content is a tiny JPEG header.
func MakeAlbum(t *testing.T, root *fs.Root, rel string, files ...string) *album.Dir {
	t.Helper()
	d, err := root.ResolveDir(rel)
	if err != nil {
		t.Fatalf("failed to resolve %q: %v", rel, err)
	}
	if err := os.MkdirAll(d.String(), 0755); err != nil {
		t.Fatalf("failed to create %q: %v", rel, err)
	}
	for _, name := range files {
		WriteFile(t, d.Join(name), JPEGHeader())
	}
	return d
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// Exists reports whether path exists without following symlinks.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
