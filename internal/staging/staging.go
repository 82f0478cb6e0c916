package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// stagingArea implements album.StagingArea using a pluggable stagingStore
// for the storage mechanics. All shared logic (limits, hashing, the head
// capture for sniffing, bookkeeping) lives here.
type stagingArea struct {
	store       stagingStore
	ids         album.IDGenerator
	maxFileSize int64
	capacity    int64

	mu    sync.Mutex
	sizes map[string]int64
	total int64
}

var _ album.StagingArea = (*stagingArea)(nil)

func newStagingArea(store stagingStore, maxFileSize, capacity int64) *stagingArea {
	return &stagingArea{
		store:       store,
		ids:         album.UUIDGenerator{},
		maxFileSize: maxFileSize,
		capacity:    capacity,
		sizes:       make(map[string]int64),
	}
}

// Stage copies r into the store. At most maxFileSize+1 bytes are read, so
// an oversized upload is detected without buffering all of it.
func (s *stagingArea) Stage(r io.Reader) (*album.StagedFile, error) {
	id := s.ids.New()
	hasher := sha256.New()
	head := &headWriter{limit: fs.SniffLen}

	limited := io.LimitReader(r, s.maxFileSize+1)
	size, err := s.store.Write(id, io.TeeReader(limited, io.MultiWriter(hasher, head)))
	if err != nil {
		s.store.Remove(id)
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	if size > s.maxFileSize {
		s.store.Remove(id)
		return nil, album.Errorf(album.ErrTooLarge, "file exceeds %s", humanize.IBytes(uint64(s.maxFileSize)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total+size > s.capacity {
		s.store.Remove(id)
		return nil, album.Errorf(album.ErrTooLarge, "staging area full: would exceed %s", humanize.IBytes(uint64(s.capacity)))
	}
	s.sizes[id] = size
	s.total += size

	return &album.StagedFile{
		ID:       id,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		Head:     head.buf,
	}, nil
}

// Commit moves the staged content to dst. On failure the content stays
// staged so the caller can retry or discard it.
func (s *stagingArea) Commit(sf *album.StagedFile, dst string) error {
	if !s.known(sf) {
		return album.Errorf(album.ErrNotFound, "upload not staged: %s", sf.ID)
	}
	if err := s.store.Move(sf.ID, dst); err != nil {
		return album.IOError("committing upload", err)
	}
	s.release(sf.ID)
	return nil
}

// Open returns a reader over staged content.
func (s *stagingArea) Open(sf *album.StagedFile) (io.ReadCloser, error) {
	if !s.known(sf) {
		return nil, album.Errorf(album.ErrNotFound, "upload not staged: %s", sf.ID)
	}
	return s.store.Open(sf.ID)
}

// Discard drops staged content. Unknown files are ignored.
func (s *stagingArea) Discard(sf *album.StagedFile) {
	if sf == nil || !s.known(sf) {
		return
	}
	s.store.Remove(sf.ID)
	s.release(sf.ID)
}

// Size returns the total size of staged content in bytes.
func (s *stagingArea) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *stagingArea) known(sf *album.StagedFile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sizes[sf.ID]
	return ok
}

func (s *stagingArea) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total -= s.sizes[id]
	delete(s.sizes, id)
}

// headWriter keeps the first limit bytes written to it.
type headWriter struct {
	limit int
	buf   []byte
}

func (h *headWriter) Write(p []byte) (int, error) {
	if room := h.limit - len(h.buf); room > 0 {
		h.buf = append(h.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}
