package manifest

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// FileName is the hidden sidecar holding an album's order and title.
const FileName = ".manifest.json"

// Store implements album.ManifestStore over `.manifest.json` sidecars.
// Every read-modify-write of one album runs under that album's lock;
// different albums proceed in parallel.
type Store struct {
	clock  album.Clock
	logger album.Logger
	locks  *keyedMutex
}

var _ album.ManifestStore = (*Store)(nil)

// NewStore creates a manifest store.
func NewStore(clock album.Clock, logger album.Logger) *Store {
	return &Store{
		clock:  clock,
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

// ListRaw returns the album's image files sorted by name.
func (s *Store) ListRaw(dir *album.Dir) ([]string, error) {
	names, err := fs.ListImages(dir.String())
	if err != nil {
		return nil, album.IOError("listing album", err)
	}
	return names, nil
}

// ListOrdered returns the album's images in display order: manifest entries
// still on disk in manifest order, then files missing from the manifest in
// name order. The manifest is rewritten when it differs from that result.
func (s *Store) ListOrdered(dir *album.Dir) ([]string, error) {
	defer s.locks.Lock(dir.String())()
	return s.listOrderedLocked(dir)
}

// Title returns the album title, trimmed.
func (s *Store) Title(dir *album.Dir) (string, error) {
	defer s.locks.Lock(dir.String())()
	return strings.TrimSpace(s.load(dir).Title), nil
}

// SetTitle stores a trimmed title.
func (s *Store) SetTitle(dir *album.Dir, title string) error {
	defer s.locks.Lock(dir.String())()
	m := s.load(dir)
	m.Title = strings.TrimSpace(title)
	return s.save(dir, m)
}

// Init creates the album directory and writes a manifest covering its
// current files.
func (s *Store) Init(dir *album.Dir) error {
	defer s.locks.Lock(dir.String())()
	if err := os.MkdirAll(dir.String(), 0755); err != nil {
		return album.IOError("creating album", err)
	}
	raw, err := s.ListRaw(dir)
	if err != nil {
		return err
	}
	m := s.load(dir)
	m.Order = reconcile(m.Order, raw)
	return s.save(dir, m)
}

// UpdateOrder keeps the names present on disk (first occurrence wins),
// appends on-disk files the caller omitted, persists and returns the result.
func (s *Store) UpdateOrder(dir *album.Dir, names []string) ([]string, error) {
	defer s.locks.Lock(dir.String())()
	return s.updateOrderLocked(dir, names)
}

// Append adds name to the end of the order if absent.
func (s *Store) Append(dir *album.Dir, name string) error {
	return s.RemoveOrRename(dir, name, name)
}

// Remove drops name from the order.
func (s *Store) Remove(dir *album.Dir, name string) error {
	return s.RemoveOrRename(dir, name, "")
}

// Rename substitutes newName for oldName in the order.
func (s *Store) Rename(dir *album.Dir, oldName, newName string) error {
	return s.RemoveOrRename(dir, oldName, newName)
}

// RemoveOrRename edits the stored order: an empty newName removes oldName,
// otherwise newName takes oldName's position (or is appended when oldName is
// absent). The result is normalized against the disk before it is saved.
func (s *Store) RemoveOrRename(dir *album.Dir, oldName, newName string) error {
	defer s.locks.Lock(dir.String())()
	order := substitute(s.load(dir).Order, oldName, newName)
	_, err := s.updateOrderLocked(dir, order)
	return err
}

// Place commits a new file named name into the album and appends it to the
// order. It fails with ErrConflict when the name is taken.
func (s *Store) Place(dir *album.Dir, name string, commit func(dst string) error) error {
	name, err := fs.ValidateFilename(name)
	if err != nil {
		return err
	}
	defer s.locks.Lock(dir.String())()

	if err := os.MkdirAll(dir.String(), 0755); err != nil {
		return album.IOError("creating album", err)
	}
	dst := dir.Join(name)
	if _, err := os.Lstat(dst); err == nil {
		return album.Errorf(album.ErrConflict, "file exists: %s", name)
	}
	if err := commit(dst); err != nil {
		return err
	}

	order := substitute(s.load(dir).Order, name, name)
	_, err = s.updateOrderLocked(dir, order)
	return err
}

// RenameFile renames an image on disk and moves the new name into the old
// name's position. A newName without extension inherits the old extension.
func (s *Store) RenameFile(dir *album.Dir, oldName, newName string) (string, error) {
	oldName, err := fs.ValidateFilename(oldName)
	if err != nil {
		return "", err
	}
	newName, err = fs.ValidateFilename(newName)
	if err != nil {
		return "", err
	}

	defer s.locks.Lock(dir.String())()

	if err := s.checkImage(dir, oldName); err != nil {
		return "", err
	}
	target := newName
	if filepath.Ext(target) == "" {
		target += strings.ToLower(filepath.Ext(oldName))
	}
	if !fs.IsImageName(target) {
		return "", album.Errorf(album.ErrUnsupported, "invalid extension: %s", target)
	}
	if _, err := fs.ValidateFilename(target); err != nil {
		return "", err
	}
	if target == oldName {
		return target, nil
	}
	if _, err := os.Lstat(dir.Join(target)); err == nil {
		return "", album.Errorf(album.ErrConflict, "target filename exists: %s", target)
	}

	before, err := s.listOrderedLocked(dir)
	if err != nil {
		return "", err
	}
	if err := os.Rename(dir.Join(oldName), dir.Join(target)); err != nil {
		return "", album.IOError("renaming file", err)
	}
	if _, err := s.updateOrderLocked(dir, substitute(before, oldName, target)); err != nil {
		return "", err
	}

	s.logger.Info("image renamed", "album", dir.Rel(), "old", oldName, "new", target)
	return target, nil
}

// DeleteFile removes an image from disk and from the order.
func (s *Store) DeleteFile(dir *album.Dir, name string) error {
	name, err := fs.ValidateFilename(name)
	if err != nil {
		return err
	}

	defer s.locks.Lock(dir.String())()

	if err := s.checkImage(dir, name); err != nil {
		return err
	}
	before := s.load(dir).Order
	if err := os.Remove(dir.Join(name)); err != nil {
		return album.IOError("deleting file", err)
	}
	if _, err := s.updateOrderLocked(dir, substitute(before, name, "")); err != nil {
		return err
	}

	s.logger.Info("image deleted", "album", dir.Rel(), "name", name)
	return nil
}

// BatchDelete deletes each name independently.
func (s *Store) BatchDelete(dir *album.Dir, names []string) []album.ItemResult {
	results := make([]album.ItemResult, 0, len(names))
	for _, name := range names {
		err := s.DeleteFile(dir, name)
		results = append(results, album.ItemResult{
			Name:   name,
			OK:     err == nil,
			Reason: reason(err),
		})
	}
	return results
}

// checkImage verifies name is an existing regular image file in dir.
func (s *Store) checkImage(dir *album.Dir, name string) error {
	info, err := os.Lstat(dir.Join(name))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return album.Errorf(album.ErrNotFound, "file not found: %s", name)
		}
		return album.IOError("stat file", err)
	}
	if !info.Mode().IsRegular() {
		return album.Errorf(album.ErrNotFound, "file not found: %s", name)
	}
	if !fs.IsImageName(name) {
		return album.Errorf(album.ErrUnsupported, "file type not allowed: %s", name)
	}
	return nil
}

func (s *Store) listOrderedLocked(dir *album.Dir) ([]string, error) {
	raw, err := s.ListRaw(dir)
	if err != nil {
		return nil, err
	}
	m := s.load(dir)
	final := reconcile(m.Order, raw)
	if !slices.Equal(final, m.Order) {
		m.Order = final
		if err := s.save(dir, m); err != nil {
			return nil, err
		}
	}
	return final, nil
}

func (s *Store) updateOrderLocked(dir *album.Dir, names []string) ([]string, error) {
	raw, err := s.ListRaw(dir)
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]bool, len(raw))
	for _, name := range raw {
		onDisk[name] = true
	}

	seen := make(map[string]bool, len(raw))
	cleaned := make([]string, 0, len(raw))
	for _, name := range names {
		if onDisk[name] && !seen[name] {
			seen[name] = true
			cleaned = append(cleaned, name)
		}
	}
	for _, name := range raw {
		if !seen[name] {
			cleaned = append(cleaned, name)
		}
	}

	m := s.load(dir)
	m.Order = cleaned
	if err := s.save(dir, m); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// load reads the manifest, falling back to the default on any problem.
func (s *Store) load(dir *album.Dir) album.Manifest {
	var m album.Manifest
	if _, err := fs.ReadJSON(filepath.Join(dir.String(), FileName), &m); err != nil {
		s.logger.Warn("manifest unreadable, using defaults", "album", dir.Rel(), "error", err)
		m = album.Manifest{}
	}
	if m.Order == nil {
		m.Order = []string{}
	}
	return m
}

func (s *Store) save(dir *album.Dir, m album.Manifest) error {
	if m.Order == nil {
		m.Order = []string{}
	}
	if err := fs.WriteJSONAtomic(filepath.Join(dir.String(), FileName), m); err != nil {
		return album.IOError("writing manifest", err)
	}
	return nil
}

// reconcile returns order ∩ raw in order's sequence, then raw − order in
// raw's sequence.
func reconcile(order, raw []string) []string {
	onDisk := make(map[string]bool, len(raw))
	for _, name := range raw {
		onDisk[name] = true
	}
	seen := make(map[string]bool, len(raw))
	final := make([]string, 0, len(raw))
	for _, name := range order {
		if onDisk[name] && !seen[name] {
			seen[name] = true
			final = append(final, name)
		}
	}
	for _, name := range raw {
		if !seen[name] {
			final = append(final, name)
		}
	}
	return final
}

// substitute replaces oldName with newName in a copy of order, removing it
// when newName is empty. A missing oldName with non-empty newName appends.
func substitute(order []string, oldName, newName string) []string {
	out := make([]string, 0, len(order)+1)
	found := false
	for _, name := range order {
		if name != oldName {
			out = append(out, name)
			continue
		}
		found = true
		if newName != "" {
			out = append(out, newName)
		}
	}
	if !found && newName != "" {
		out = append(out, newName)
	}
	return out
}

// reason is the short per-item failure description used in batch results.
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, album.ErrInvalidInput):
		return "invalid name"
	case errors.Is(err, album.ErrNotFound):
		return "not found"
	case errors.Is(err, album.ErrUnsupported):
		return "file type not allowed"
	default:
		return fmt.Sprintf("failed: %v", err)
	}
}
