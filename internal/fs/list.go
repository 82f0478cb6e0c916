package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strings"
)

// ListImages returns the sorted names of the regular, non-hidden image
// files directly inside dir. A missing directory yields an empty list.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || IsHidden(e.Name()) || !IsImageName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ListSubdirs returns the sorted names of the visible subdirectories of dir.
// Symlinks and names starting with "_" or "." are excluded.
func ListSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || e.Type()&os.ModeSymlink != 0 {
			continue
		}
		if strings.HasPrefix(e.Name(), "_") || IsHidden(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
