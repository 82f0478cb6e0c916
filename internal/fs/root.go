package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"albumd/internal/album"
)

// Root is the storage root every album lives under. It implements
// album.Resolver: every Dir or file path it hands out is the root or a
// descendant of it after symlink evaluation.
type Root struct {
	abs string
}

var _ album.Resolver = (*Root)(nil)

// NewRoot creates the storage root directory if needed and returns a Root
// anchored at its canonical location.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("evaluating storage root: %w", err)
	}
	return &Root{abs: real}, nil
}

// Root returns the storage root itself.
func (r *Root) Root() *album.Dir {
	return album.NewDir("", r.abs)
}

// String returns the canonical absolute root path.
func (r *Root) String() string {
	return r.abs
}

// ResolveToken validates token and returns its album directory. The entry
// must be the token's own directory: a slug link at the root leads to
// another folder and is reported as ErrNotFound.
func (r *Root) ResolveToken(token string) (*album.Dir, error) {
	token, err := ValidateToken(token)
	if err != nil {
		return nil, err
	}
	dir, err := r.ResolveDir(token)
	if err != nil {
		return nil, err
	}
	if dir.Rel() != token {
		return nil, album.Errorf(album.ErrNotFound, "token not found: %s", token)
	}
	return dir, nil
}

// ResolvePath validates a folder path and returns its directory.
func (r *Root) ResolvePath(rawPath string) (*album.Dir, error) {
	p, err := ValidatePath(rawPath)
	if err != nil {
		return nil, err
	}
	return r.ResolveDir(p)
}

// ResolveDir joins rel onto the root, canonicalizes the result with symlink
// evaluation and verifies it is the root or a descendant.
// The directory does not have to exist.
func (r *Root) ResolveDir(rel string) (*album.Dir, error) {
	if strings.ContainsRune(rel, 0) {
		return nil, album.Errorf(album.ErrInvalidInput, "path contains NUL")
	}
	canon, err := canonicalize(filepath.Join(r.abs, filepath.FromSlash(rel)))
	if err != nil {
		return nil, album.IOError("resolving path", err)
	}
	relOut, ok := within(r.abs, canon)
	if !ok {
		return nil, album.Errorf(album.ErrPathEscape, "%q", rel)
	}
	return album.NewDir(relOut, canon), nil
}

// ResolveFile validates name and returns its absolute path inside dir.
func (r *Root) ResolveFile(dir *album.Dir, name string) (string, error) {
	name, err := ValidateFilename(name)
	if err != nil {
		return "", err
	}
	canon, err := canonicalize(filepath.Join(dir.String(), name))
	if err != nil {
		return "", album.IOError("resolving file", err)
	}
	if _, ok := within(dir.String(), canon); !ok {
		return "", album.Errorf(album.ErrPathEscape, "%q", name)
	}
	return canon, nil
}

// ValidateFilename checks a bare filename.
func (r *Root) ValidateFilename(name string) (string, error) {
	return ValidateFilename(name)
}

// canonicalize evaluates symlinks on the deepest existing ancestor of p and
// re-joins the components that do not exist yet.
func canonicalize(p string) (string, error) {
	var tail []string
	cur := p
	for {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{real}, tail...)...), nil
		}
		if !errors.Is(err, iofs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// within reports whether p is base or a descendant of it and returns the
// slash-separated relative path.
func within(base, p string) (string, bool) {
	rel, err := filepath.Rel(base, p)
	if err != nil || filepath.IsAbs(rel) {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}
