package manifest

import (
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"albumd/internal/album"
	"albumd/internal/testutil"
)

func TestStore_BatchRename(t *testing.T) {
	t.Run("renames with zero padding", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg", "b.jpg")
		s := newTestStore()

		pairs, err := s.BatchRename(dir, []string{"a.jpg", "b.jpg"}, "x", 1, 3)
		if err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		want := []album.RenamePair{{Old: "a.jpg", New: "x-001.jpg"}, {Old: "b.jpg", New: "x-002.jpg"}}
		if !slices.Equal(pairs, want) {
			t.Errorf("BatchRename() = %v, want %v", pairs, want)
		}
		order, _ := s.ListOrdered(dir)
		if !slices.Equal(order, []string{"x-001.jpg", "x-002.jpg"}) {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("conflict with unselected file touches nothing", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg", "b.jpg", "x-001.jpg")
		s := newTestStore()

		_, err := s.BatchRename(dir, []string{"a.jpg", "b.jpg"}, "x", 1, 3)
		if !errors.Is(err, album.ErrConflict) {
			t.Fatalf("BatchRename() error = %v, want ErrConflict", err)
		}
		for _, name := range []string{"a.jpg", "b.jpg", "x-001.jpg"} {
			if !testutil.Exists(dir.Join(name)) {
				t.Errorf("%s should still exist", name)
			}
		}
	})

	t.Run("conflict with non-image file on disk", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg")
		if err := os.Mkdir(dir.Join("x-1.jpg"), 0755); err != nil {
			t.Fatal(err)
		}

		_, err := newTestStore().BatchRename(dir, []string{"a.jpg"}, "x", 1, 1)
		if !errors.Is(err, album.ErrConflict) {
			t.Fatalf("BatchRename() error = %v, want ErrConflict", err)
		}
	})

	t.Run("targets may reuse selected names", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "z.jpg")
		testutil.WriteFile(t, dir.Join("a.jpg"), []byte("\xff\xd8\xffone"))
		testutil.WriteFile(t, dir.Join("x-1.jpg"), []byte("\xff\xd8\xfftwo"))
		s := newTestStore()
		if _, err := s.UpdateOrder(dir, []string{"z.jpg", "x-1.jpg", "a.jpg"}); err != nil {
			t.Fatal(err)
		}

		pairs, err := s.BatchRename(dir, []string{"a.jpg", "x-1.jpg"}, "x", 1, 1)
		if err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		want := []album.RenamePair{{Old: "a.jpg", New: "x-1.jpg"}, {Old: "x-1.jpg", New: "x-2.jpg"}}
		if !slices.Equal(pairs, want) {
			t.Fatalf("BatchRename() = %v, want %v", pairs, want)
		}

		for name, content := range map[string]string{"x-1.jpg": "\xff\xd8\xffone", "x-2.jpg": "\xff\xd8\xfftwo"} {
			data, err := os.ReadFile(dir.Join(name))
			if err != nil || string(data) != content {
				t.Errorf("%s content = %q, %v; want %q", name, data, err, content)
			}
		}
		order, _ := s.ListOrdered(dir)
		if wantOrder := []string{"z.jpg", "x-2.jpg", "x-1.jpg"}; !slices.Equal(order, wantOrder) {
			t.Errorf("order = %v, want %v", order, wantOrder)
		}
	})

	t.Run("keeps positions of renamed files", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg", "b.jpg", "c.jpg", "d.jpg")
		s := newTestStore()
		if _, err := s.UpdateOrder(dir, []string{"d.jpg", "b.jpg", "c.jpg", "a.jpg"}); err != nil {
			t.Fatal(err)
		}

		if _, err := s.BatchRename(dir, []string{"a.jpg", "b.jpg"}, "pic", 7, 2); err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		order, _ := s.ListOrdered(dir)
		if want := []string{"d.jpg", "pic-08.jpg", "c.jpg", "pic-07.jpg"}; !slices.Equal(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})

	t.Run("unknown and duplicate names are skipped", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.JPG")
		s := newTestStore()

		pairs, err := s.BatchRename(dir, []string{"ghost.jpg", "a.JPG", "a.JPG"}, "x", 0, 0)
		if err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		if want := []album.RenamePair{{Old: "a.JPG", New: "x-0.jpg"}}; !slices.Equal(pairs, want) {
			t.Errorf("BatchRename() = %v, want %v", pairs, want)
		}
	})

	t.Run("nothing selected", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg")

		pairs, err := newTestStore().BatchRename(dir, []string{"ghost.jpg"}, "x", 1, 3)
		if err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		if len(pairs) != 0 {
			t.Errorf("BatchRename() = %v, want empty", pairs)
		}
	})

	t.Run("padding is clamped", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg")

		pairs, err := newTestStore().BatchRename(dir, []string{"a.jpg"}, "x", 5, 99)
		if err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		if pairs[0].New != "x-000005.jpg" {
			t.Errorf("New = %q, want x-000005.jpg", pairs[0].New)
		}
	})

	t.Run("invalid prefix", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg")

		_, err := newTestStore().BatchRename(dir, []string{"a.jpg"}, "../x", 1, 3)
		if !errors.Is(err, album.ErrInvalidInput) {
			t.Errorf("BatchRename() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		root := testutil.NewTestRoot(t)
		dir := testutil.MakeAlbum(t, root, "abc", "a.jpg", "b.jpg", "c.jpg")

		if _, err := newTestStore().BatchRename(dir, []string{"c.jpg", "a.jpg", "b.jpg"}, "y", 1, 2); err != nil {
			t.Fatalf("BatchRename() error = %v", err)
		}
		entries, err := os.ReadDir(dir.String())
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), tmpPrefix) {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})
}
