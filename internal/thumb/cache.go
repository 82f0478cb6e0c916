// Package thumb renders and caches JPEG previews of album images.
package thumb

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	// decoders
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"albumd/internal/album"
	"albumd/internal/fs"
)

const (
	// DirName is the hidden cache directory inside each album.
	DirName = ".thumbs"

	DefaultSize = 256
	MinSize     = 32
	MaxSize     = 2048
	quality     = 82

	// MaxPixels bounds the decoded size of a source image. A few hundred
	// bytes of PNG can declare dimensions that need gigabytes to decode.
	MaxPixels = 50_000_000
)

// Cache implements album.Thumbnailer. Thumbnails live at
// <album>/.thumbs/<size>/<name>.jpg and are rebuilt when the source is newer.
type Cache struct {
	logger album.Logger
	mu     sync.Mutex
}

var _ album.Thumbnailer = (*Cache)(nil)

// NewCache creates a thumbnail cache.
func NewCache(logger album.Logger) *Cache {
	return &Cache{logger: logger}
}

// ClampSize maps a requested edge length into the supported range.
// Zero or negative means DefaultSize.
func ClampSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	return max(MinSize, min(size, MaxSize))
}

// Thumbnail returns the path of a cached JPEG of dir/name whose longer edge
// is at most size pixels.
func (c *Cache) Thumbnail(dir *album.Dir, name string, size int) (string, error) {
	name, err := fs.ValidateFilename(name)
	if err != nil {
		return "", err
	}
	if !fs.IsImageName(name) {
		return "", album.Errorf(album.ErrUnsupported, "file type not allowed: %s", name)
	}
	size = ClampSize(size)

	src := dir.Join(name)
	srcInfo, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return "", album.Errorf(album.ErrNotFound, "file not found: %s", name)
		}
		return "", album.IOError("stat image", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return "", album.Errorf(album.ErrNotFound, "file not found: %s", name)
	}

	dst := filepath.Join(dir.String(), DirName, strconv.Itoa(size), name+".jpg")

	c.mu.Lock()
	defer c.mu.Unlock()

	if info, err := os.Stat(dst); err == nil && !info.ModTime().Before(srcInfo.ModTime()) {
		return dst, nil
	}

	data, err := render(src, size)
	if err != nil {
		return "", err
	}
	if err := fs.WriteFileAtomic(dst, data, 0644); err != nil {
		return "", album.IOError("writing thumbnail", err)
	}
	c.logger.Debug("thumbnail rendered", "album", dir.Rel(), "name", name, "size", size)
	return dst, nil
}

// render decodes path and scales it so the longer edge fits size.
func render(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, album.IOError("opening image", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, album.Errorf(album.ErrUnsupported, "decoding image: %w", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, album.Errorf(album.ErrUnsupported, "image too large to preview: %dx%d", cfg.Width, cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, album.IOError("rewinding image", err)
	}

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, album.Errorf(album.ErrUnsupported, "decoding image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, album.Errorf(album.ErrUnsupported, "empty image")
	}

	nw, nh := scaled(w, h, size)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, album.IOError("encoding thumbnail", err)
	}
	return out.Bytes(), nil
}

// scaled keeps the aspect ratio; images already smaller than size keep theirs.
func scaled(w, h, size int) (int, int) {
	nw, nh := w, h
	if w > h {
		if w > size {
			nw = size
			nh = int(float64(h) * (float64(size) / float64(w)))
		}
	} else if h > size {
		nh = size
		nw = int(float64(w) * (float64(size) / float64(h)))
	}
	return max(nw, 1), max(nh, 1)
}
