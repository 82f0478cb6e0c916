package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/otiai10/copy"

	"albumd/internal/album"
)

// MoveDir moves the directory src to dst. dst must not exist. When src and
// dst are on different filesystems the tree is copied and then removed;
// that fallback is not atomic and a failure midway leaves both copies.
func MoveDir(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return album.Errorf(album.ErrConflict, "destination exists: %s", filepath.Base(dst))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return album.IOError("creating destination parent", err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return album.IOError("moving directory", err)
	}

	if err := copy.Copy(src, dst, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Shallow },
		Sync:      true,
	}); err != nil {
		return album.IOError("copying directory across filesystems", err)
	}
	if err := os.RemoveAll(src); err != nil {
		return album.IOError(fmt.Sprintf("removing %s after copy", filepath.Base(src)), err)
	}
	return nil
}
