package album

// Resolver validates user-supplied identifiers and maps them to locations
// strictly under the storage root. It is implemented by fs.Root.
type Resolver interface {
	// Root returns the storage root as a Dir.
	Root() *Dir

	// ResolveToken validates a flat album token and returns its directory.
	ResolveToken(token string) (*Dir, error)

	// ResolvePath validates a slash-separated folder path and returns its directory.
	ResolvePath(rawPath string) (*Dir, error)

	// ResolveFile validates a filename and returns its absolute path inside dir.
	ResolveFile(dir *Dir, name string) (string, error)

	// ValidateFilename checks a bare filename without touching the filesystem.
	ValidateFilename(name string) (string, error)
}
