// Package vault stores exported album archives off the serving tree.
package vault

import (
	"albumd/internal/album"
	"albumd/internal/fs"
)

// validName checks that an archive name is a single plain filename.
func validName(name string) error {
	if _, err := fs.ValidateFilename(name); err != nil {
		return album.Errorf(album.ErrInvalidInput, "invalid archive name %q", name)
	}
	return nil
}
