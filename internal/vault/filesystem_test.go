package vault

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"albumd/internal/album"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "archives")); err != nil {
			t.Errorf("archives directory not created: %v", err)
		}
		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_Put(t *testing.T) {
	tests := []struct {
		name    string
		archive string
		data    string
		size    int64
		wantErr bool
	}{
		{
			name:    "store archive successfully",
			archive: "abc-20240115-103000.tar.gz",
			data:    "hello world",
			size:    11,
		},
		{
			name:    "size mismatch",
			archive: "def.tar.gz",
			data:    "hello",
			size:    100,
			wantErr: true,
		},
		{
			name:    "unknown size",
			archive: "ghi.tar.gz",
			data:    "stream",
			size:    -1,
		},
		{
			name:    "name with path separator",
			archive: "../escape.tar.gz",
			data:    "x",
			size:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.Put(context.Background(), tt.archive, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Put() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				entries, _ := os.ReadDir(v.archivesDir)
				if len(entries) != 0 {
					t.Errorf("archives dir has %d entries after failure, want 0", len(entries))
				}
				return
			}

			data, err := os.ReadFile(filepath.Join(v.archivesDir, tt.archive))
			if err != nil {
				t.Fatalf("failed to read archive file: %v", err)
			}
			if string(data) != tt.data {
				t.Errorf("content = %q, want %q", string(data), tt.data)
			}
		})
	}
}

func TestFileSystemVault_Get(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	t.Run("retrieve existing archive", func(t *testing.T) {
		if err := v.Put(ctx, "a.tar.gz", strings.NewReader("hello"), 5); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		var buf bytes.Buffer
		if err := v.Get(ctx, "a.tar.gz", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "hello" {
			t.Errorf("content = %q, want %q", buf.String(), "hello")
		}
	})

	t.Run("archive not found", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.Get(ctx, "missing.tar.gz", &buf)
		if !errors.Is(err, album.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("overwrites", func(t *testing.T) {
		v.Put(ctx, "b.tar.gz", strings.NewReader("one"), 3)
		v.Put(ctx, "b.tar.gz", strings.NewReader("two"), 3)
		var buf bytes.Buffer
		v.Get(ctx, "b.tar.gz", &buf)
		if buf.String() != "two" {
			t.Errorf("content = %q, want two", buf.String())
		}
	})
}

func TestFileSystemVault_List(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	list, err := v.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}

	v.Put(ctx, "b.tar.gz", strings.NewReader("bb"), 2)
	v.Put(ctx, "a.tar.gz", strings.NewReader("a"), 1)
	os.WriteFile(filepath.Join(v.archivesDir, ".tmp-leftover"), []byte("x"), 0644)

	list, err = v.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "a.tar.gz" || list[1].Name != "b.tar.gz" {
		t.Fatalf("List() = %+v", list)
	}
	if list[1].Size != 2 {
		t.Errorf("Size = %d, want 2", list[1].Size)
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := v.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing archives directory", func(t *testing.T) {
		root := t.TempDir()
		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		os.RemoveAll(filepath.Join(root, "archives"))
		if err := v.ValidateSetup(ctx); err == nil {
			t.Error("ValidateSetup() expected error for missing archives directory")
		}
	})
}
