package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/otiai10/copy"

	"albumd/internal/album"
)

// fileSystemStore keeps staged content as files in one directory:
//
//	<staging_dir>/
//	  <id>    (staged upload)
//
// Staged files normally live on the same filesystem as the albums, so a
// commit is a single rename.
type fileSystemStore struct {
	dir string
}

// NewFileSystemStagingArea creates a staging area in dir. Leftovers from a
// previous run are removed.
func NewFileSystemStagingArea(dir string, maxFileSize, capacity int64) (album.StagingArea, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clearing staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return newStagingArea(&fileSystemStore{dir: dir}, maxFileSize, capacity), nil
}

func (f *fileSystemStore) path(id string) string {
	return filepath.Join(f.dir, id)
}

func (f *fileSystemStore) Write(id string, r io.Reader) (int64, error) {
	file, err := os.OpenFile(f.path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("creating staged file: %w", err)
	}
	n, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		return n, fmt.Errorf("writing staged file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return n, fmt.Errorf("syncing staged file: %w", err)
	}
	return n, file.Close()
}

func (f *fileSystemStore) Open(id string) (io.ReadCloser, error) {
	return os.Open(f.path(id))
}

func (f *fileSystemStore) Move(id, dst string) error {
	src := f.path(id)
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copy.Copy(src, dst, copy.Options{Sync: true}); err != nil {
		return fmt.Errorf("copying staged file across filesystems: %w", err)
	}
	return os.Remove(src)
}

func (f *fileSystemStore) Remove(id string) {
	os.Remove(f.path(id))
}
