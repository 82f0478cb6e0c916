package album

import "io"

// StagedFile is an upload held in the staging area until it is committed
// into an album.
type StagedFile struct {
	ID       string
	Size     int64
	Checksum string
	// Head holds the first bytes of the content for type sniffing.
	Head []byte
}

// StagingArea buffers uploads before they are placed into an album.
// It enforces a per-file limit and a total capacity so a burst of uploads
// cannot fill the filesystem.
type StagingArea interface {
	// Stage copies r into the staging area, computing its checksum.
	// Returns an error wrapping ErrTooLarge when r exceeds the per-file limit
	// or the staging area is full.
	Stage(r io.Reader) (*StagedFile, error)

	// Commit moves the staged content to dst and releases it.
	Commit(sf *StagedFile, dst string) error

	// Open returns a reader over the staged content.
	Open(sf *StagedFile) (io.ReadCloser, error)

	// Discard releases staged content without committing it.
	Discard(sf *StagedFile)

	// Size returns the total size of staged content in bytes.
	Size() int64
}
