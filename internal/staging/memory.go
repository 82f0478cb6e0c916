package staging

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"albumd/internal/album"
)

// memoryStore keeps staged content in memory. Useful for tests.
type memoryStore struct {
	files map[string][]byte
}

// NewMemoryStagingArea creates an in-memory staging area.
// maxFileSize bounds one upload and capacity the total staged bytes.
func NewMemoryStagingArea(maxFileSize, capacity int64) album.StagingArea {
	return newStagingArea(&memoryStore{files: make(map[string][]byte)}, maxFileSize, capacity)
}

func (m *memoryStore) Write(id string, r io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	m.files[id] = buf.Bytes()
	return n, nil
}

func (m *memoryStore) Open(id string) (io.ReadCloser, error) {
	data, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("staged content not found: %s", id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Move(id, dst string) error {
	data, ok := m.files[id]
	if !ok {
		return fmt.Errorf("staged content not found: %s", id)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}
	delete(m.files, id)
	return nil
}

func (m *memoryStore) Remove(id string) {
	delete(m.files, id)
}
