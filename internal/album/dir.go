package album

import (
	"path"
	"path/filepath"
)

// Dir represents a validated directory under the storage root.
// Dir values are created by Resolver implementations, which guarantee the
// absolute path is the root or one of its descendants. The directory does
// not have to exist yet.
type Dir struct {
	rel string
	abs string
}

// NewDir creates a Dir from its components.
// This is primarily for use by Resolver implementations.
func NewDir(rel, abs string) *Dir {
	return &Dir{rel: rel, abs: abs}
}

// String returns the absolute path.
func (d *Dir) String() string {
	return d.abs
}

// Rel returns the slash-separated path relative to the storage root.
// The root itself has an empty relative path.
func (d *Dir) Rel() string {
	return d.rel
}

// Name returns the last segment of the relative path.
func (d *Dir) Name() string {
	if d.rel == "" {
		return ""
	}
	return path.Base(d.rel)
}

// Join returns the absolute path of name inside the directory.
// name must already be a validated filename.
func (d *Dir) Join(name string) string {
	return filepath.Join(d.abs, name)
}
