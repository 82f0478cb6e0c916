package staging

import "io"

// stagingStore abstracts the storage mechanics for a staging area.
// Concurrency is managed by the caller (stagingArea), so stores do not
// need to be safe for concurrent use of the same id.
type stagingStore interface {
	// Write stores everything read from r under id and returns its size.
	Write(id string, r io.Reader) (int64, error)

	// Open returns a reader for the content stored under id.
	Open(id string) (io.ReadCloser, error)

	// Move places the content of id at dst and forgets it.
	Move(id, dst string) error

	// Remove discards the content of id (best-effort).
	Remove(id string)
}
