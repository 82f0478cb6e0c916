package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"albumd/internal/album"
	"albumd/internal/fs"
)

const (
	minPadding = 1
	maxPadding = 6
	tmpPrefix  = ".__tmp__"
)

// BatchRename renames the selected images to "<prefix>-<n><ext>" with n
// zero-padded to padding digits (clamped to 1..6) starting at start. The
// extension is the lowercased original one. Only names currently in the
// album are selected, deduplicated, in input order.
//
// All conflicts are detected before any file moves. The moves run in two
// phases through hidden temp names so targets may reuse names of other
// selected files. Each file keeps its position in the display order.
func (s *Store) BatchRename(dir *album.Dir, names []string, prefix string, start, padding int) ([]album.RenamePair, error) {
	prefix, err := fs.ValidateFilename(prefix)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, album.Errorf(album.ErrInvalidInput, "start must not be negative")
	}
	padding = max(minPadding, min(padding, maxPadding))

	clean := make([]string, 0, len(names))
	for _, name := range names {
		name, err := fs.ValidateFilename(name)
		if err != nil {
			return nil, err
		}
		clean = append(clean, name)
	}

	defer s.locks.Lock(dir.String())()

	ordered, err := s.listOrderedLocked(dir)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(ordered))
	for _, name := range ordered {
		existing[name] = true
	}

	selectedSet := make(map[string]bool, len(clean))
	var selected []string
	for _, name := range clean {
		if existing[name] && !selectedSet[name] {
			selectedSet[name] = true
			selected = append(selected, name)
		}
	}
	if len(selected) == 0 {
		return []album.RenamePair{}, nil
	}

	pairs := make([]album.RenamePair, len(selected))
	targetSet := make(map[string]bool, len(selected))
	for i, old := range selected {
		num := strconv.Itoa(start + i)
		if len(num) < padding {
			num = strings.Repeat("0", padding-len(num)) + num
		}
		target := fmt.Sprintf("%s-%s%s", prefix, num, strings.ToLower(filepath.Ext(old)))
		if _, err := fs.ValidateFilename(target); err != nil {
			return nil, album.Errorf(album.ErrInvalidInput, "invalid target name: %s", target)
		}
		if targetSet[target] {
			return nil, album.Errorf(album.ErrConflict, "generated names conflict: %s", target)
		}
		targetSet[target] = true
		pairs[i] = album.RenamePair{Old: old, New: target}
	}
	for _, p := range pairs {
		if selectedSet[p.New] {
			continue
		}
		if existing[p.New] {
			return nil, album.Errorf(album.ErrConflict, "target exists: %s", p.New)
		}
		if _, err := os.Lstat(dir.Join(p.New)); err == nil {
			return nil, album.Errorf(album.ErrConflict, "target exists: %s", p.New)
		}
	}

	// Phase 1: move every selected file to a hidden temp name.
	now := s.clock.Now().UnixNano()
	temps := make([]string, len(pairs))
	for i, p := range pairs {
		sum := sha256.Sum256([]byte(p.Old + strconv.FormatInt(now, 10)))
		temps[i] = tmpPrefix + hex.EncodeToString(sum[:])[:32] + filepath.Ext(p.Old)
		if err := os.Rename(dir.Join(p.Old), dir.Join(temps[i])); err != nil {
			for j := i - 1; j >= 0; j-- {
				s.restore(dir, temps[j], pairs[j].Old)
			}
			return nil, album.IOError("moving "+p.Old+" aside", err)
		}
	}

	// Phase 2: move temps to their targets, persisting the order after each
	// move from the pre-rename snapshot.
	pos := make(map[string]int, len(ordered))
	for i, name := range ordered {
		pos[name] = i
	}
	current := append([]string(nil), ordered...)
	for i, p := range pairs {
		if err := os.Rename(dir.Join(temps[i]), dir.Join(p.New)); err != nil {
			for j := i; j < len(pairs); j++ {
				s.restore(dir, temps[j], pairs[j].Old)
			}
			if _, uerr := s.updateOrderLocked(dir, current); uerr != nil {
				s.logger.Error("batch rename order update failed", "album", dir.Rel(), "error", uerr)
			}
			return pairs[:i], album.IOError(fmt.Sprintf("renaming %s to %s (%d of %d done)", p.Old, p.New, i, len(pairs)), err)
		}
		current[pos[p.Old]] = p.New
		m := s.load(dir)
		m.Order = current
		if err := s.save(dir, m); err != nil {
			s.logger.Warn("batch rename order checkpoint failed", "album", dir.Rel(), "error", err)
		}
	}

	if _, err := s.updateOrderLocked(dir, current); err != nil {
		return pairs, err
	}
	s.logger.Info("batch rename completed", "album", dir.Rel(), "count", len(pairs))
	return pairs, nil
}

// restore moves a temp file back to its original name. It refuses to
// overwrite a file that took the name in the meantime and leaves the temp
// file in place for manual recovery.
func (s *Store) restore(dir *album.Dir, temp, name string) {
	if _, err := os.Lstat(dir.Join(name)); err == nil {
		s.logger.Error("batch rename restore skipped, name taken", "album", dir.Rel(), "temp", temp, "name", name)
		return
	}
	if err := os.Rename(dir.Join(temp), dir.Join(name)); err != nil {
		s.logger.Error("batch rename restore failed", "album", dir.Rel(), "temp", temp, "name", name, "error", err)
	}
}
