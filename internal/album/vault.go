package album

import (
	"context"
	"io"
)

// Vault provides an interface for archive storage backends.
// All operations use io.Reader/io.Writer for streaming to support large
// archives without loading them entirely into memory.
type Vault interface {
	// Put stores an archive under name. size is the number of bytes that
	// will be read from r. Storing the same name twice overwrites it.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Get retrieves the archive stored under name and writes it to w.
	// Returns an error wrapping ErrNotFound when the name is unknown.
	Get(ctx context.Context, name string, w io.Writer) error

	// List returns the stored archives sorted by name.
	List(ctx context.Context) ([]ArchiveInfo, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
