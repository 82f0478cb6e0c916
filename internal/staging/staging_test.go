package staging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"albumd/internal/album"
	"albumd/internal/config"
)

type testArea struct {
	name string
	new  func(t *testing.T, maxFileSize, capacity int64) album.StagingArea
}

var areas = []testArea{
	{"memory", func(t *testing.T, maxFileSize, capacity int64) album.StagingArea {
		return NewMemoryStagingArea(maxFileSize, capacity)
	}},
	{"filesystem", func(t *testing.T, maxFileSize, capacity int64) album.StagingArea {
		sa, err := NewFileSystemStagingArea(filepath.Join(t.TempDir(), ".staging"), maxFileSize, capacity)
		if err != nil {
			t.Fatalf("NewFileSystemStagingArea() error = %v", err)
		}
		return sa
	}},
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func TestStagingArea_Stage(t *testing.T) {
	for _, a := range areas {
		t.Run(a.name, func(t *testing.T) {
			t.Run("records size checksum and head", func(t *testing.T) {
				sa := a.new(t, 1024, 4096)
				content := bytes.Repeat([]byte("x"), 100)

				sf, err := sa.Stage(bytes.NewReader(content))
				if err != nil {
					t.Fatalf("Stage() error = %v", err)
				}
				if sf.Size != 100 {
					t.Errorf("Size = %d, want 100", sf.Size)
				}
				if sf.Checksum != sum(content) {
					t.Errorf("Checksum = %s, want %s", sf.Checksum, sum(content))
				}
				if len(sf.Head) != 64 || !bytes.Equal(sf.Head, content[:64]) {
					t.Errorf("Head = %d bytes, want first 64", len(sf.Head))
				}
				if got := sa.Size(); got != 100 {
					t.Errorf("Size() = %d, want 100", got)
				}
			})

			t.Run("short content keeps short head", func(t *testing.T) {
				sa := a.new(t, 1024, 4096)
				sf, err := sa.Stage(strings.NewReader("abc"))
				if err != nil {
					t.Fatalf("Stage() error = %v", err)
				}
				if string(sf.Head) != "abc" {
					t.Errorf("Head = %q, want abc", sf.Head)
				}
			})

			t.Run("rejects oversized file", func(t *testing.T) {
				sa := a.new(t, 10, 4096)
				_, err := sa.Stage(bytes.NewReader(make([]byte, 11)))
				if !errors.Is(err, album.ErrTooLarge) {
					t.Fatalf("Stage() error = %v, want ErrTooLarge", err)
				}
				if got := sa.Size(); got != 0 {
					t.Errorf("Size() = %d after rejection, want 0", got)
				}
			})

			t.Run("accepts file of exactly the limit", func(t *testing.T) {
				sa := a.new(t, 10, 4096)
				if _, err := sa.Stage(bytes.NewReader(make([]byte, 10))); err != nil {
					t.Errorf("Stage() error = %v", err)
				}
			})

			t.Run("rejects when full", func(t *testing.T) {
				sa := a.new(t, 100, 150)
				if _, err := sa.Stage(bytes.NewReader(make([]byte, 100))); err != nil {
					t.Fatalf("Stage() error = %v", err)
				}
				_, err := sa.Stage(bytes.NewReader(make([]byte, 60)))
				if !errors.Is(err, album.ErrTooLarge) {
					t.Errorf("Stage() error = %v, want ErrTooLarge", err)
				}
			})
		})
	}
}

func TestStagingArea_Commit(t *testing.T) {
	for _, a := range areas {
		t.Run(a.name, func(t *testing.T) {
			sa := a.new(t, 1024, 4096)
			sf, err := sa.Stage(strings.NewReader("payload"))
			if err != nil {
				t.Fatalf("Stage() error = %v", err)
			}

			r, err := sa.Open(sf)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			data, _ := io.ReadAll(r)
			r.Close()
			if string(data) != "payload" {
				t.Errorf("Open() content = %q", data)
			}

			dst := filepath.Join(t.TempDir(), "out.jpg")
			if err := sa.Commit(sf, dst); err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
			got, err := os.ReadFile(dst)
			if err != nil || string(got) != "payload" {
				t.Errorf("committed content = %q, %v", got, err)
			}
			if sa.Size() != 0 {
				t.Errorf("Size() = %d after commit, want 0", sa.Size())
			}
			if err := sa.Commit(sf, dst); !errors.Is(err, album.ErrNotFound) {
				t.Errorf("second Commit() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStagingArea_Discard(t *testing.T) {
	for _, a := range areas {
		t.Run(a.name, func(t *testing.T) {
			sa := a.new(t, 1024, 4096)
			sf, err := sa.Stage(strings.NewReader("gone"))
			if err != nil {
				t.Fatalf("Stage() error = %v", err)
			}
			sa.Discard(sf)
			sa.Discard(sf)
			if sa.Size() != 0 {
				t.Errorf("Size() = %d, want 0", sa.Size())
			}
			if _, err := sa.Open(sf); !errors.Is(err, album.ErrNotFound) {
				t.Errorf("Open() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestNewFileSystemStagingArea_ClearsLeftovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".staging")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stale"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileSystemStagingArea(dir, 10, 100); err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("staging dir has %d entries, want 0", len(entries))
	}
}

func TestNewStagingAreaFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.UploadConfig
		wantErr bool
	}{
		{"memory", config.UploadConfig{Staging: "memory", MaxMB: 1}, false},
		{"filesystem", config.UploadConfig{Staging: "filesystem", StagingDir: "DIR", MaxMB: 1}, false},
		{"filesystem without dir", config.UploadConfig{Staging: "filesystem"}, true},
		{"unknown", config.UploadConfig{Staging: "tape"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.StagingDir == "DIR" {
				tt.cfg.StagingDir = t.TempDir()
			}
			sa, err := NewStagingAreaFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStagingAreaFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sa == nil {
				t.Error("NewStagingAreaFromConfig() returned nil")
			}
		})
	}
}
