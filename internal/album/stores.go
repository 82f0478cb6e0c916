package album

import "context"

// ManifestStore owns the per-album order and title sidecar.
// It is the single source of truth for display order; every mutation of an
// album's files goes through it so the order stays consistent.
type ManifestStore interface {
	// ListOrdered returns the album's images in display order, rewriting
	// the manifest when the stored order has drifted from the disk.
	ListOrdered(dir *Dir) ([]string, error)

	Title(dir *Dir) (string, error)
	SetTitle(dir *Dir, title string) error

	// Init creates the manifest for a fresh album from its current files.
	Init(dir *Dir) error

	// UpdateOrder replaces the display order and returns the normalized result.
	UpdateOrder(dir *Dir, names []string) ([]string, error)

	// Place runs commit with the destination path of name and appends
	// name to the order, all under the album lock.
	Place(dir *Dir, name string, commit func(dst string) error) error

	// RenameFile renames an image on disk and in the order. A newName
	// without an extension inherits the old one. Returns the final name.
	RenameFile(dir *Dir, oldName, newName string) (string, error)

	// DeleteFile removes an image from disk and from the order.
	DeleteFile(dir *Dir, name string) error

	// BatchDelete deletes each name independently and reports per-item outcomes.
	BatchDelete(dir *Dir, names []string) []ItemResult

	// BatchRename renames the selected images to prefix-NNN.ext in a
	// two-phase move that preserves their positions in the order.
	BatchRename(dir *Dir, names []string, prefix string, start, padding int) ([]RenamePair, error)
}

// FolderTree builds the hierarchical view of the storage root and owns the
// persisted subfolder order of each directory.
type FolderTree interface {
	Build() ([]*TreeNode, error)
	Subfolders(dir *Dir) ([]string, error)
	ReorderSubfolder(parent *Dir, name, before string) ([]string, error)
	RemoveSubfolderFromOrder(parent *Dir, name string) error
}

// SlugRegistry maps short hashed identifiers to folder paths.
type SlugRegistry interface {
	GetOrCreate(path string) (string, error)
	Resolve(slug string) (string, bool)
	// All returns a copy of the slug to path table.
	All() map[string]string
}

// VisitLog records album visits and aggregates them.
type VisitLog interface {
	// RecordVisit never fails; problems are logged and swallowed.
	RecordVisit(key, token, ip, userAgent string)
	Stats() (map[string]StatsEntry, error)
	Analytics(limit int, includeLocal bool) (*AnalyticsReport, error)
}

// Locator resolves an IP address to a coarse location.
// ok is false when the address is unknown.
type Locator interface {
	Lookup(ip string) (loc Location, ok bool)
}

// Thumbnailer produces a cached, size-bounded preview of an album image
// and returns the path of the cached file.
type Thumbnailer interface {
	Thumbnail(dir *Dir, name string, size int) (string, error)
}

// Exporter packs an album directory into an archive stored off-site.
// It returns the stored archive name.
type Exporter interface {
	Export(ctx context.Context, dir *Dir, name string) (string, error)
}
