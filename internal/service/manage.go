package service

import (
	"albumd/internal/album"
	"albumd/internal/fs"
)

// AlbumContents lists an album for the admin view without recording a visit.
func (s *AlbumService) AlbumContents(ref string) (*album.AlbumView, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return nil, err
	}
	files, err := s.manifests.ListOrdered(dir)
	if err != nil {
		return nil, err
	}
	title, err := s.manifests.Title(dir)
	if err != nil {
		return nil, err
	}
	return &album.AlbumView{Token: dir.Rel(), Title: title, Files: files, Count: len(files)}, nil
}

// SetTitle stores the album title and returns it as persisted.
func (s *AlbumService) SetTitle(ref, title string) (string, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return "", err
	}
	if err := s.manifests.SetTitle(dir, title); err != nil {
		return "", err
	}
	return s.manifests.Title(dir)
}

// UpdateOrder replaces the display order. Every name must be a valid
// filename; names not on disk are dropped.
func (s *AlbumService) UpdateOrder(ref string, names []string) ([]string, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return nil, err
	}
	clean, err := validateNames(names)
	if err != nil {
		return nil, err
	}
	return s.manifests.UpdateOrder(dir, clean)
}

// RenameImage renames one image and returns its final name.
func (s *AlbumService) RenameImage(ref, oldName, newName string) (string, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return "", err
	}
	return s.manifests.RenameFile(dir, oldName, newName)
}

// DeleteImage removes one image.
func (s *AlbumService) DeleteImage(ref, name string) error {
	dir, err := s.albumDir(ref)
	if err != nil {
		return err
	}
	return s.manifests.DeleteFile(dir, name)
}

// BatchDelete removes each name independently and reports per-item results.
func (s *AlbumService) BatchDelete(ref string, names []string) ([]album.ItemResult, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return nil, err
	}
	results := s.manifests.BatchDelete(dir, names)
	deleted := 0
	for _, r := range results {
		if r.OK {
			deleted++
		}
	}
	s.logger.Info("batch delete completed", "album", dir.Rel(), "requested", len(names), "deleted", deleted)
	return results, nil
}

// BatchRename renames the selected images to <prefix>-<n><ext>.
func (s *AlbumService) BatchRename(ref string, names []string, prefix string, start, padding int) ([]album.RenamePair, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return nil, err
	}
	return s.manifests.BatchRename(dir, names, prefix, start, padding)
}

func validateNames(names []string) ([]string, error) {
	clean := make([]string, 0, len(names))
	for _, name := range names {
		n, err := fs.ValidateFilename(name)
		if err != nil {
			return nil, err
		}
		clean = append(clean, n)
	}
	return clean, nil
}
