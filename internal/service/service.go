// Package service is the orchestration layer that coordinates the stores,
// the staging area and the archive exporter to perform the album operations
// needed by the HTTP server and the CLI.
package service

import (
	"errors"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// Deps holds the collaborators of an AlbumService.
type Deps struct {
	Resolver  album.Resolver
	Manifests album.ManifestStore
	Tree      album.FolderTree
	Slugs     album.SlugRegistry
	Visits    album.VisitLog
	Staging   album.StagingArea
	Thumbs    album.Thumbnailer
	// Exporter is nil when no archive vault is configured.
	Exporter album.Exporter
	Clock    album.Clock
	Logger   album.Logger

	// ImportIgnore are extra patterns skipped by zip and folder imports.
	ImportIgnore []string
	// ExportOnArchive exports a token to the vault before archiving it.
	ExportOnArchive bool
}

// AlbumService performs the album operations on top of its Deps.
type AlbumService struct {
	resolver        album.Resolver
	manifests       album.ManifestStore
	tree            album.FolderTree
	slugs           album.SlugRegistry
	visits          album.VisitLog
	staging         album.StagingArea
	thumbs          album.Thumbnailer
	exporter        album.Exporter
	clock           album.Clock
	logger          album.Logger
	ignore          *fs.IgnoreMatcher
	exportOnArchive bool
}

// NewAlbumService creates an AlbumService with the provided dependencies.
func NewAlbumService(d Deps) *AlbumService {
	return &AlbumService{
		resolver:        d.Resolver,
		manifests:       d.Manifests,
		tree:            d.Tree,
		slugs:           d.Slugs,
		visits:          d.Visits,
		staging:         d.Staging,
		thumbs:          d.Thumbs,
		exporter:        d.Exporter,
		clock:           d.Clock,
		logger:          d.Logger,
		ignore:          fs.NewIgnoreMatcher(d.ImportIgnore),
		exportOnArchive: d.ExportOnArchive,
	}
}

// AlbumView resolves key as a slug first and as a token second, lists the
// album and records the visit. Unknown keys and empty token albums are
// ErrNotFound.
func (s *AlbumService) AlbumView(key, ip, userAgent string) (*album.AlbumView, error) {
	key, err := fs.ValidateToken(key)
	if err != nil {
		return nil, err
	}

	if realPath, ok := s.slugs.Resolve(key); ok {
		dir, err := s.resolver.ResolvePath(realPath)
		if err != nil {
			return nil, err
		}
		files, err := s.manifests.ListOrdered(dir)
		if err != nil {
			return nil, err
		}
		title, _ := s.manifests.Title(dir)
		if title == "" {
			title = dir.Name()
		}
		s.visits.RecordVisit(dir.Rel(), key, ip, userAgent)
		return &album.AlbumView{
			Token:    key,
			Title:    title,
			Files:    files,
			Count:    len(files),
			RealPath: dir.Rel(),
		}, nil
	}

	dir, err := s.resolver.ResolveToken(key)
	if err != nil {
		return nil, err
	}
	files, err := s.manifests.ListOrdered(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, album.Errorf(album.ErrNotFound, "album not found: %s", key)
	}
	title, _ := s.manifests.Title(dir)
	if title == "" {
		title = key
	}
	s.visits.RecordVisit(key, key, ip, userAgent)
	return &album.AlbumView{Token: key, Title: title, Files: files, Count: len(files)}, nil
}

// OpenImage returns the absolute path of an image of the album addressed by
// key (slug first, then token). Only allowed image types are served.
func (s *AlbumService) OpenImage(key, name string) (string, error) {
	dir, err := s.lookup(key)
	if err != nil {
		return "", err
	}
	p, err := s.resolver.ResolveFile(dir, name)
	if err != nil {
		return "", err
	}
	if !fs.IsImageName(p) {
		return "", album.Errorf(album.ErrUnsupported, "file type not allowed: %s", name)
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", album.Errorf(album.ErrNotFound, "file not found: %s", name)
	}
	return p, nil
}

// Thumbnail returns the path of a cached preview of an image of the album
// addressed by key.
func (s *AlbumService) Thumbnail(key, name string, size int) (string, error) {
	dir, err := s.lookup(key)
	if err != nil {
		return "", err
	}
	return s.thumbs.Thumbnail(dir, name, size)
}

// Health verifies the storage root is writable.
func (s *AlbumService) Health() error {
	root := s.resolver.Root().String()
	if err := os.MkdirAll(root, 0755); err != nil {
		return album.IOError("creating storage root", err)
	}
	marker := filepath.Join(root, ".health_check")
	if err := os.WriteFile(marker, []byte("ok"), 0644); err != nil {
		return album.IOError("writing health check file", err)
	}
	if err := os.Remove(marker); err != nil {
		return album.IOError("removing health marker", err)
	}
	return nil
}

// GetOrCreateSlug returns the slug of the folder at rawPath, creating it.
func (s *AlbumService) GetOrCreateSlug(rawPath string) (string, error) {
	dir, err := s.resolver.ResolvePath(rawPath)
	if err != nil {
		return "", err
	}
	return s.slugs.GetOrCreate(dir.Rel())
}

// ResolveSlug returns the folder path of slug.
func (s *AlbumService) ResolveSlug(slug string) (string, bool) {
	return s.slugs.Resolve(strings.TrimSpace(slug))
}

// Slugs returns the whole slug table.
func (s *AlbumService) Slugs() map[string]string {
	return s.slugs.All()
}

// Stats returns the per-album view counters.
func (s *AlbumService) Stats() (map[string]album.StatsEntry, error) {
	return s.visits.Stats()
}

// Analytics aggregates the visit log.
func (s *AlbumService) Analytics(limit int, includeLocal bool) (*album.AnalyticsReport, error) {
	return s.visits.Analytics(limit, includeLocal)
}

// lookup maps a public key to its album directory: slug table first, then
// the token directory.
func (s *AlbumService) lookup(key string) (*album.Dir, error) {
	key, err := fs.ValidateToken(key)
	if err != nil {
		return nil, err
	}
	if realPath, ok := s.slugs.Resolve(key); ok {
		return s.resolver.ResolvePath(realPath)
	}
	return s.resolver.ResolveToken(key)
}

// albumDir resolves an admin reference: a token when it is a valid token,
// a folder path otherwise.
func (s *AlbumService) albumDir(ref string) (*album.Dir, error) {
	if _, err := fs.ValidateToken(ref); err == nil {
		return s.resolver.ResolveToken(ref)
	}
	return s.resolver.ResolvePath(ref)
}

// parentOf returns the parent directory of a resolved folder.
func (s *AlbumService) parentOf(dir *album.Dir) (*album.Dir, error) {
	parent := path.Dir(dir.Rel())
	if parent == "." || parent == "" {
		return s.resolver.Root(), nil
	}
	return s.resolver.ResolvePath(parent)
}

// existingDir fails with ErrNotFound unless dir exists as a directory.
func existingDir(dir *album.Dir, what string) error {
	info, err := os.Stat(dir.String())
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return album.Errorf(album.ErrNotFound, "%s not found: %s", what, dir.Rel())
		}
		return album.IOError("stat "+what, err)
	}
	if !info.IsDir() {
		return album.Errorf(album.ErrInvalidInput, "not a folder: %s", dir.Rel())
	}
	return nil
}
