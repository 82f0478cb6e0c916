package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"albumd/internal/album"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps all archives in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name     string
	archives map[string]memoryArchive
	mu       sync.RWMutex
}

type memoryArchive struct {
	data    []byte
	created time.Time
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		archives: make(map[string]memoryArchive),
	}
}

// Put stores an archive. A negative size skips the size check.
func (m *MemoryVault) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[name] = memoryArchive{data: data, created: time.Now().UTC()}
	return nil
}

// Get writes the archive stored under name to w.
func (m *MemoryVault) Get(ctx context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.archives[name]
	if !ok {
		return album.Errorf(album.ErrNotFound, "archive not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(a.data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// List returns the stored archives sorted by name.
func (m *MemoryVault) List(ctx context.Context) ([]album.ArchiveInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]album.ArchiveInfo, 0, len(m.archives))
	for name, a := range m.archives {
		out = append(out, album.ArchiveInfo{Name: name, Size: int64(len(a.data)), Created: a.created})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements album.Vault interface
var _ album.Vault = (*MemoryVault)(nil)
