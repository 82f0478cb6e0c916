package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"albumd/internal/album"
	"albumd/internal/fs"
)

const (
	// ArchiveDirName holds albums removed in archive mode.
	ArchiveDirName = "_archived"

	archiveTimeLayout = "20060102-150405"

	RemoveModeArchive = "archive"
	RemoveModeDelete  = "delete"
)

// ListTokens returns the flat token albums directly under the root with
// their image counts. Symlinks, "_"-prefixed names and names that are not
// valid tokens are skipped.
func (s *AlbumService) ListTokens() ([]album.TokenSummary, error) {
	root := s.resolver.Root()
	entries, err := os.ReadDir(root.String())
	if err != nil {
		if os.IsNotExist(err) {
			return []album.TokenSummary{}, nil
		}
		return nil, album.IOError("listing tokens", err)
	}

	out := make([]album.TokenSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Type()&os.ModeSymlink != 0 || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		if token, err := fs.ValidateToken(e.Name()); err != nil || token != e.Name() {
			continue
		}
		d, err := s.resolver.ResolveToken(e.Name())
		if err != nil {
			continue
		}
		images, err := fs.ListImages(d.String())
		if err != nil {
			return nil, album.IOError("listing token "+e.Name(), err)
		}
		title, _ := s.manifests.Title(d)
		out = append(out, album.TokenSummary{Token: e.Name(), Title: title, Count: len(images)})
	}
	return out, nil
}

// CreateToken creates the token directory and its manifest. Creating an
// existing token is a no-op apart from normalizing its manifest.
func (s *AlbumService) CreateToken(token string) (string, error) {
	token, err := fs.ValidateToken(token)
	if err != nil {
		return "", err
	}
	link := filepath.Join(s.resolver.Root().String(), token)
	if info, err := os.Lstat(link); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", album.Errorf(album.ErrConflict, "name is taken by a slug: %s", token)
	}
	dir, err := s.resolver.ResolveToken(token)
	if err != nil {
		return "", err
	}
	if err := s.manifests.Init(dir); err != nil {
		return "", err
	}
	s.logger.Info("token created", "token", dir.Rel())
	return dir.Rel(), nil
}

// RemoveToken removes a token album. Mode "archive" (the default) moves it to
// _archived/<token>-<YYYYMMDD-HHMMSS>, exporting it to the vault first when
// configured; mode "delete" removes it recursively.
func (s *AlbumService) RemoveToken(ctx context.Context, token, mode string) (*album.RemoveResult, error) {
	token, err := fs.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	dir, err := s.resolver.ResolveToken(token)
	if err != nil {
		return nil, err
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = RemoveModeArchive
	}
	if mode != RemoveModeArchive && mode != RemoveModeDelete {
		return nil, album.Errorf(album.ErrInvalidInput, "mode must be archive or delete")
	}
	if err := existingDir(dir, "token"); err != nil {
		return nil, err
	}

	result := &album.RemoveResult{Token: token, Mode: mode}
	if mode == RemoveModeDelete {
		if err := os.RemoveAll(dir.String()); err != nil {
			return nil, album.IOError("deleting token", err)
		}
		s.logger.Info("token deleted", "token", token)
		return result, nil
	}

	if s.exportOnArchive && s.exporter != nil {
		name, err := s.exporter.Export(ctx, dir, token)
		if err != nil {
			return nil, err
		}
		result.Exported = name
	}

	target := token + "-" + s.clock.Now().UTC().Format(archiveTimeLayout)
	dst := filepath.Join(s.resolver.Root().String(), ArchiveDirName, target)
	if err := fs.MoveDir(dir.String(), dst); err != nil {
		return nil, err
	}
	result.ArchivedTo = target
	s.logger.Info("token archived", "token", token, "archived_to", target)
	return result, nil
}

// ExportArchive exports the folder at rawPath to the vault and returns the
// stored archive name.
func (s *AlbumService) ExportArchive(ctx context.Context, rawPath string) (string, error) {
	if s.exporter == nil {
		return "", album.Errorf(album.ErrUnsupported, "archive export is not configured")
	}
	dir, err := s.albumDir(rawPath)
	if err != nil {
		return "", err
	}
	if err := existingDir(dir, "folder"); err != nil {
		return "", err
	}
	return s.exporter.Export(ctx, dir, strings.ReplaceAll(dir.Rel(), "/", "_"))
}
