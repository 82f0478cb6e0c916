package service

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// Tree builds the folder tree of the storage root.
func (s *AlbumService) Tree() ([]*album.TreeNode, error) {
	return s.tree.Build()
}

// FolderContents lists the ordered images and subfolders of a folder.
func (s *AlbumService) FolderContents(rawPath string) (*album.FolderContents, error) {
	dir, err := s.resolver.ResolvePath(rawPath)
	if err != nil {
		return nil, err
	}
	if err := existingDir(dir, "folder"); err != nil {
		return nil, err
	}
	files, err := s.manifests.ListOrdered(dir)
	if err != nil {
		return nil, err
	}
	subfolders, err := s.tree.Subfolders(dir)
	if err != nil {
		return nil, err
	}
	return &album.FolderContents{Path: dir.Rel(), Files: files, Subfolders: subfolders}, nil
}

// CreateFolder creates the folder and any missing parents.
func (s *AlbumService) CreateFolder(rawPath string) (string, error) {
	dir, err := s.resolver.ResolvePath(rawPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir.String(), 0755); err != nil {
		return "", album.IOError("creating folder", err)
	}
	s.logger.Info("folder created", "path", dir.Rel())
	return dir.Rel(), nil
}

// DeleteFolder removes a folder recursively and drops it from its parent's
// order record.
func (s *AlbumService) DeleteFolder(rawPath string) (string, error) {
	dir, err := s.resolver.ResolvePath(rawPath)
	if err != nil {
		return "", err
	}
	if err := existingDir(dir, "folder"); err != nil {
		return "", err
	}
	parent, err := s.parentOf(dir)
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(dir.String()); err != nil {
		return "", album.IOError("deleting folder", err)
	}
	if err := s.tree.RemoveSubfolderFromOrder(parent, dir.Name()); err != nil {
		s.logger.Warn("folder order cleanup failed", "path", dir.Rel(), "error", err)
	}
	s.logger.Info("folder deleted", "path", dir.Rel())
	return dir.Rel(), nil
}

// MoveFolder moves the folder at rawPath into destParent ("" is the root)
// and returns its new path. Moving a folder into itself or one of its
// descendants is ErrInvalidInput; an existing destination is ErrConflict.
func (s *AlbumService) MoveFolder(rawPath, destParent string) (string, error) {
	src, err := s.resolver.ResolvePath(rawPath)
	if err != nil {
		return "", err
	}
	if err := existingDir(src, "folder"); err != nil {
		return "", err
	}

	dest := s.resolver.Root()
	if strings.Trim(strings.TrimSpace(destParent), "/") != "" {
		if dest, err = s.resolver.ResolvePath(destParent); err != nil {
			return "", err
		}
	}
	if dest.Rel() == src.Rel() || strings.HasPrefix(dest.Rel()+"/", src.Rel()+"/") {
		return "", album.Errorf(album.ErrInvalidInput, "cannot move %s into itself", src.Rel())
	}
	if dest.Rel() != "" {
		if err := existingDir(dest, "destination"); err != nil {
			return "", err
		}
	}

	oldParent, err := s.parentOf(src)
	if err != nil {
		return "", err
	}
	if err := fs.MoveDir(src.String(), filepath.Join(dest.String(), src.Name())); err != nil {
		return "", err
	}
	if err := s.tree.RemoveSubfolderFromOrder(oldParent, src.Name()); err != nil {
		s.logger.Warn("folder order cleanup failed", "path", src.Rel(), "error", err)
	}

	newPath := path.Join(dest.Rel(), src.Name())
	s.logger.Info("folder moved", "from", src.Rel(), "to", newPath)
	return newPath, nil
}

// ReorderFolder places name immediately before `before` among the
// subfolders of parent ("" is the root) and returns the new order.
func (s *AlbumService) ReorderFolder(parent, name, before string) ([]string, error) {
	dir := s.resolver.Root()
	if strings.Trim(strings.TrimSpace(parent), "/") != "" {
		var err error
		if dir, err = s.resolver.ResolvePath(parent); err != nil {
			return nil, err
		}
	}
	return s.tree.ReorderSubfolder(dir, strings.TrimSpace(name), strings.TrimSpace(before))
}
