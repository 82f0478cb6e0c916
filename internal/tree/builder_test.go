package tree

import (
	"errors"
	"os"
	"slices"
	"testing"

	"albumd/internal/album"
	"albumd/internal/fs"
	"albumd/internal/testutil"
)

// fakeSlugs hands out "s-<path>" and can be told to fail.
type fakeSlugs struct {
	fail  bool
	calls []string
}

func (f *fakeSlugs) GetOrCreate(path string) (string, error) {
	f.calls = append(f.calls, path)
	if f.fail {
		return "", errors.New("registry offline")
	}
	return "s-" + path, nil
}

func (f *fakeSlugs) Resolve(string) (string, bool) { return "", false }

func (f *fakeSlugs) All() map[string]string { return map[string]string{} }

func newTestBuilder(t *testing.T) (*Builder, *fs.Root, *fakeSlugs) {
	t.Helper()
	root := testutil.NewTestRoot(t)
	slugs := &fakeSlugs{}
	return NewBuilder(root.Root(), slugs, album.NewNopLogger()), root, slugs
}

func names(nodes []*album.TreeNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestBuilder_Build(t *testing.T) {
	t.Run("classifies leaves and collections", func(t *testing.T) {
		b, root, slugs := newTestBuilder(t)
		testutil.MakeAlbum(t, root, "trips/rome", "a.jpg", "b.png")
		testutil.MakeAlbum(t, root, "trips/empty")
		testutil.MakeAlbum(t, root, "trips", "cover.jpg")
		testutil.MakeAlbum(t, root, "_archived/old", "x.jpg")
		testutil.MakeAlbum(t, root, ".hidden", "x.jpg")

		nodes, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if got := names(nodes); !slices.Equal(got, []string{"trips"}) {
			t.Fatalf("Build() roots = %v, want [trips]", got)
		}
		trips := nodes[0]
		if trips.IsAlbum || trips.Slug != "" || trips.ImageCount != 1 {
			t.Errorf("trips = %+v, want collection with 1 image", trips)
		}
		if got := names(trips.Children); !slices.Equal(got, []string{"empty", "rome"}) {
			t.Fatalf("children = %v", got)
		}
		empty, rome := trips.Children[0], trips.Children[1]
		if empty.IsAlbum {
			t.Error("empty folder classified as album")
		}
		if !rome.IsAlbum || rome.ImageCount != 2 || rome.Path != "trips/rome" || rome.Slug != "s-trips/rome" {
			t.Errorf("rome = %+v", rome)
		}
		if !slices.Equal(slugs.calls, []string{"trips/rome"}) {
			t.Errorf("slug requests = %v, want only trips/rome", slugs.calls)
		}
	})

	t.Run("skips symlinked folders", func(t *testing.T) {
		b, root, _ := newTestBuilder(t)
		testutil.MakeAlbum(t, root, "real", "a.jpg")
		if err := os.Symlink("real", root.Root().Join("alias")); err != nil {
			t.Fatal(err)
		}

		nodes, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if got := names(nodes); !slices.Equal(got, []string{"real"}) {
			t.Errorf("Build() = %v, want [real]", got)
		}
	})

	t.Run("slug failure keeps the node", func(t *testing.T) {
		b, root, slugs := newTestBuilder(t)
		slugs.fail = true
		testutil.MakeAlbum(t, root, "a", "x.jpg")

		nodes, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(nodes) != 1 || !nodes[0].IsAlbum || nodes[0].Slug != "" {
			t.Errorf("Build() = %+v", nodes)
		}
	})

	t.Run("empty root", func(t *testing.T) {
		b, _, _ := newTestBuilder(t)
		nodes, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if nodes == nil || len(nodes) != 0 {
			t.Errorf("Build() = %v, want empty non-nil", nodes)
		}
	})
}

func TestBuilder_ReorderSubfolder(t *testing.T) {
	t.Run("places before target and persists", func(t *testing.T) {
		b, root, _ := newTestBuilder(t)
		for _, n := range []string{"p/a", "p/b", "p/c"} {
			testutil.MakeAlbum(t, root, n, "x.jpg")
		}
		parent := testutil.MakeAlbum(t, root, "p")

		order, err := b.ReorderSubfolder(parent, "c", "a")
		if err != nil {
			t.Fatalf("ReorderSubfolder() error = %v", err)
		}
		if want := []string{"c", "a", "b"}; !slices.Equal(order, want) {
			t.Errorf("ReorderSubfolder() = %v, want %v", order, want)
		}

		nodes, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if got := names(nodes[0].Children); !slices.Equal(got, []string{"c", "a", "b"}) {
			t.Errorf("Build() children = %v, want [c a b]", got)
		}
	})

	tests := []struct {
		name   string
		move   string
		before string
		want   []string
	}{
		{"append when before is empty", "a", "", []string{"b", "c", "a"}},
		{"append when before is unknown", "a", "zzz", []string{"b", "c", "a"}},
		{"middle", "c", "b", []string{"a", "c", "b"}},
		{"before itself", "b", "b", []string{"a", "c", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, root, _ := newTestBuilder(t)
			for _, n := range []string{"a", "b", "c"} {
				testutil.MakeAlbum(t, root, n)
			}
			got, err := b.ReorderSubfolder(root.Root(), tt.move, tt.before)
			if err != nil {
				t.Fatalf("ReorderSubfolder() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ReorderSubfolder() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("unknown folder", func(t *testing.T) {
		b, root, _ := newTestBuilder(t)
		testutil.MakeAlbum(t, root, "a")
		_, err := b.ReorderSubfolder(root.Root(), "ghost", "a")
		if !errors.Is(err, album.ErrNotFound) {
			t.Errorf("ReorderSubfolder() error = %v, want ErrNotFound", err)
		}
	})
}

func TestBuilder_Subfolders(t *testing.T) {
	b, root, _ := newTestBuilder(t)
	for _, n := range []string{"a", "b", "c"} {
		testutil.MakeAlbum(t, root, n)
	}
	if _, err := b.ReorderSubfolder(root.Root(), "c", "a"); err != nil {
		t.Fatal(err)
	}

	// Removed and added folders after the record was written.
	if err := os.Remove(root.Root().Join("a")); err != nil {
		t.Fatal(err)
	}
	testutil.MakeAlbum(t, root, "0new")

	got, err := b.Subfolders(root.Root())
	if err != nil {
		t.Fatalf("Subfolders() error = %v", err)
	}
	if want := []string{"c", "b", "0new"}; !slices.Equal(got, want) {
		t.Errorf("Subfolders() = %v, want %v", got, want)
	}

	if err := b.RemoveSubfolderFromOrder(root.Root(), "c"); err != nil {
		t.Fatalf("RemoveSubfolderFromOrder() error = %v", err)
	}
	got, _ = b.Subfolders(root.Root())
	if want := []string{"b", "0new", "c"}; !slices.Equal(got, want) {
		t.Errorf("Subfolders() after remove = %v, want %v", got, want)
	}
}

func TestBuilder_MalformedOrderRecord(t *testing.T) {
	b, root, _ := newTestBuilder(t)
	for _, n := range []string{"b", "a"} {
		testutil.MakeAlbum(t, root, n)
	}
	testutil.WriteFile(t, root.Root().Join(OrderFileName), []byte("{not json"))

	got, err := b.Subfolders(root.Root())
	if err != nil {
		t.Fatalf("Subfolders() error = %v", err)
	}
	if want := []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("Subfolders() = %v, want %v", got, want)
	}
}
