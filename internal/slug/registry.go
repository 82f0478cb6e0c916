package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"albumd/internal/album"
	"albumd/internal/fs"
)

const (
	// FileName is the registry document at the storage root.
	FileName = "_slugs.json"
	// Prefix starts every slug.
	Prefix = "a-"
	// baseLen is the number of hex digits in a slug without collisions.
	baseLen = 8
)

// document is the on-disk registry. Both directions are kept so lookups
// never scan.
type document struct {
	SlugToPath map[string]string `json:"slug_to_path"`
	PathToSlug map[string]string `json:"path_to_slug"`
}

// Registry implements album.SlugRegistry. Entries are never removed.
// When symlinks are enabled, <root>/<slug> is kept pointing at
// <root>/<path> as a compatibility shim; resolution itself always goes
// through the table.
type Registry struct {
	root     string
	salt     string
	symlinks bool
	logger   album.Logger
	mu       sync.Mutex
}

var _ album.SlugRegistry = (*Registry)(nil)

// NewRegistry creates a registry stored at root/_slugs.json.
func NewRegistry(root, salt string, symlinks bool, logger album.Logger) *Registry {
	return &Registry{
		root:     root,
		salt:     salt,
		symlinks: symlinks,
		logger:   logger,
	}
}

// Compute returns the slug for path using the first n hex digits of
// SHA-256(salt + "|" + path).
func Compute(salt, path string, n int) string {
	sum := sha256.Sum256([]byte(salt + "|" + path))
	digest := hex.EncodeToString(sum[:])
	n = max(1, min(n, len(digest)))
	return Prefix + digest[:n]
}

// GetOrCreate returns the slug of path, registering it on first use.
// If the 8-digit slug already belongs to another path, the digest is
// extended two digits at a time until a free slug is found.
func (r *Registry) GetOrCreate(rawPath string) (string, error) {
	path, err := fs.ValidatePath(rawPath)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return "", album.IOError("reading slug registry", err)
	}
	if existing, ok := doc.PathToSlug[path]; ok {
		r.ensureSymlink(existing, path)
		return existing, nil
	}

	var slug string
	for n := baseLen; n <= sha256.Size*2; n += 2 {
		candidate := Compute(r.salt, path, n)
		if owner, taken := doc.SlugToPath[candidate]; !taken || owner == path {
			slug = candidate
			break
		}
		r.logger.Warn("slug collision, extending", "slug", candidate, "path", path, "owner", doc.SlugToPath[candidate])
	}
	if slug == "" {
		return "", album.Errorf(album.ErrConflict, "no free slug for %q", path)
	}

	doc.SlugToPath[slug] = path
	doc.PathToSlug[path] = slug
	if err := fs.WriteJSONAtomic(filepath.Join(r.root, FileName), doc); err != nil {
		return "", album.IOError("writing slug registry", err)
	}

	r.logger.Info("slug created", "slug", slug, "path", path)
	r.ensureSymlink(slug, path)
	return slug, nil
}

// Resolve looks up the path of slug. It never mutates the registry.
func (r *Registry) Resolve(slug string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.load().SlugToPath[slug]
	return path, ok
}

// All returns a copy of the slug to path table.
func (r *Registry) All() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string)
	for k, v := range r.load().SlugToPath {
		out[k] = v
	}
	return out
}

// load is read for lookups: an unreadable registry resolves nothing.
func (r *Registry) load() *document {
	doc, err := r.read()
	if err != nil {
		r.logger.Warn("slug registry unreadable", "error", err)
		return &document{SlugToPath: map[string]string{}, PathToSlug: map[string]string{}}
	}
	return doc
}

// read decodes the registry. A missing file is an empty registry; a
// damaged one is an error so that it is never overwritten.
func (r *Registry) read() (*document, error) {
	doc := &document{}
	if _, err := fs.ReadJSON(filepath.Join(r.root, FileName), doc); err != nil {
		return nil, err
	}
	if doc.SlugToPath == nil {
		doc.SlugToPath = make(map[string]string)
	}
	if doc.PathToSlug == nil {
		doc.PathToSlug = make(map[string]string)
	}
	return doc, nil
}

// ensureSymlink creates or repairs root/slug -> path. Failures are logged.
func (r *Registry) ensureSymlink(slug, path string) {
	if !r.symlinks {
		return
	}
	link := filepath.Join(r.root, slug)
	target := filepath.FromSlash(path)

	if info, err := os.Lstat(link); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			r.logger.Warn("slug link name taken by a real entry", "slug", slug)
			return
		}
		if current, err := os.Readlink(link); err == nil && current == target {
			return
		}
		if err := os.Remove(link); err != nil {
			r.logger.Warn("removing stale slug link failed", "slug", slug, "error", err)
			return
		}
	}
	if err := os.Symlink(target, link); err != nil {
		r.logger.Warn("creating slug link failed", "slug", slug, "path", path, "error", err)
	}
}
