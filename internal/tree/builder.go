// Package tree builds the folder hierarchy under the storage root and owns
// the per-directory subfolder order records.
package tree

import (
	"path/filepath"
	"slices"
	"sync"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// OrderFileName is the hidden sidecar holding a directory's subfolder order.
const OrderFileName = ".folder_order.json"

// maxDepth bounds recursion on pathological trees.
const maxDepth = 64

// Builder implements album.FolderTree.
type Builder struct {
	root   *album.Dir
	slugs  album.SlugRegistry
	logger album.Logger
	mu     sync.Mutex
}

var _ album.FolderTree = (*Builder)(nil)

// NewBuilder creates a tree builder over root. Album leaves get their slug
// from slugs.
func NewBuilder(root *album.Dir, slugs album.SlugRegistry, logger album.Logger) *Builder {
	return &Builder{
		root:   root,
		slugs:  slugs,
		logger: logger,
	}
}

// Build returns the visible subdirectories of the root, recursively, each
// level in its persisted order.
func (b *Builder) Build() ([]*album.TreeNode, error) {
	return b.build(b.root, 0)
}

func (b *Builder) build(dir *album.Dir, depth int) ([]*album.TreeNode, error) {
	nodes := []*album.TreeNode{}
	if depth >= maxDepth {
		b.logger.Warn("folder tree too deep, truncating", "path", dir.Rel())
		return nodes, nil
	}

	names, err := b.Subfolders(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		child := album.NewDir(joinRel(dir.Rel(), name), dir.Join(name))
		children, err := b.build(child, depth+1)
		if err != nil {
			return nil, err
		}
		images, err := fs.ListImages(child.String())
		if err != nil {
			return nil, album.IOError("listing "+child.Rel(), err)
		}

		node := &album.TreeNode{
			Name:       name,
			Path:       child.Rel(),
			ImageCount: len(images),
			IsAlbum:    len(images) > 0 && len(children) == 0,
			Children:   children,
		}
		if node.IsAlbum {
			slug, err := b.slugs.GetOrCreate(node.Path)
			if err != nil {
				b.logger.Warn("creating slug failed", "path", node.Path, "error", err)
			} else {
				node.Slug = slug
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Subfolders returns the visible subfolder names of dir: entries of the
// order record that still exist, then the rest sorted by name. Reading
// never rewrites the record.
func (b *Builder) Subfolders(dir *album.Dir) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subfoldersLocked(dir)
}

// ReorderSubfolder moves name immediately before before in parent's order.
// An empty or unknown before appends name. Other entries keep their
// relative order.
func (b *Builder) ReorderSubfolder(parent *album.Dir, name, before string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.subfoldersLocked(parent)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(current, name) {
		return nil, album.Errorf(album.ErrNotFound, "folder not found: %s", joinRel(parent.Rel(), name))
	}

	order := slices.DeleteFunc(slices.Clone(current), func(s string) bool { return s == name })
	idx := slices.Index(order, before)
	if before == "" || before == name || idx < 0 {
		order = append(order, name)
	} else {
		order = slices.Insert(order, idx, name)
	}

	if err := b.save(parent, order); err != nil {
		return nil, err
	}
	b.logger.Info("folder reordered", "parent", parent.Rel(), "name", name, "before", before)
	return order, nil
}

// RemoveSubfolderFromOrder drops name from parent's order record.
func (b *Builder) RemoveSubfolderFromOrder(parent *album.Dir, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, err := b.load(parent)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(slices.Clone(order), func(s string) bool { return s == name })
	if len(kept) == len(order) {
		return nil
	}
	return b.save(parent, kept)
}

func (b *Builder) subfoldersLocked(dir *album.Dir) ([]string, error) {
	onDisk, err := fs.ListSubdirs(dir.String())
	if err != nil {
		return nil, album.IOError("listing folders", err)
	}
	order, err := b.load(dir)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(onDisk))
	for _, name := range onDisk {
		present[name] = true
	}
	out := make([]string, 0, len(onDisk))
	seen := make(map[string]bool, len(onDisk))
	for _, name := range order {
		if present[name] && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range onDisk {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// load reads the order record. A malformed record is treated as empty.
func (b *Builder) load(dir *album.Dir) ([]string, error) {
	var order []string
	if _, err := fs.ReadJSON(filepath.Join(dir.String(), OrderFileName), &order); err != nil {
		b.logger.Warn("folder order unreadable, ignoring", "path", dir.Rel(), "error", err)
		return nil, nil
	}
	return order, nil
}

func (b *Builder) save(dir *album.Dir, order []string) error {
	if order == nil {
		order = []string{}
	}
	if err := fs.WriteJSONAtomic(filepath.Join(dir.String(), OrderFileName), order); err != nil {
		return album.IOError("writing folder order", err)
	}
	return nil
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
