package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"albumd/internal/album"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores archives as files in a directory structure:
//
//	<root>/
//	  archives/
//	    <name>     (one file per archive)
type FileSystemVault struct {
	name        string
	root        string
	archivesDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	archivesDir := filepath.Join(root, "archives")
	if err := os.MkdirAll(archivesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archives directory: %w", err)
	}
	return &FileSystemVault{
		name:        name,
		root:        root,
		archivesDir: archivesDir,
	}, nil
}

// Put stores an archive. A negative size skips the size check.
func (v *FileSystemVault) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return v.writeFile(filepath.Join(v.archivesDir, name), r, size)
}

// Get writes the archive stored under name to w.
func (v *FileSystemVault) Get(ctx context.Context, name string, w io.Writer) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(v.archivesDir, name))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return album.Errorf(album.ErrNotFound, "archive not found: %s", name)
		}
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	return nil
}

// List returns the stored archives sorted by name.
func (v *FileSystemVault) List(ctx context.Context) ([]album.ArchiveInfo, error) {
	entries, err := os.ReadDir(v.archivesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	out := []album.ArchiveInfo{}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, album.ArchiveInfo{
			Name:    e.Name(),
			Size:    info.Size(),
			Created: info.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	info, err = os.Stat(v.archivesDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.archivesDir)
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if expectedSize >= 0 && written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// Compile-time check that FileSystemVault implements album.Vault interface
var _ album.Vault = (*FileSystemVault)(nil)
