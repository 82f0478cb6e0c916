package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"

	"albumd/internal/album"
	"albumd/internal/fs"
)

// ImportFile is one entry of a folder import: the client-side relative path
// and a way to read its content.
type ImportFile struct {
	Path string
	Open func() (io.ReadCloser, error)
}

// Upload stores r as a new image of the album ref. The sniffed type decides
// the extension; the name is "<unix>_<sha256(head+time)[:16]><ext>".
func (s *AlbumService) Upload(ref string, r io.Reader) (*album.UploadResult, error) {
	dir, err := s.albumDir(ref)
	if err != nil {
		return nil, err
	}

	sf, err := s.staging.Stage(r)
	if err != nil {
		return nil, err
	}
	defer s.staging.Discard(sf)

	ext := fs.SniffImageType(sf.Head)
	if ext == "" {
		return nil, album.Errorf(album.ErrUnsupported, "only image files allowed")
	}

	now := s.clock.Now()
	sum := sha256.Sum256(append(append([]byte{}, sf.Head...), strconv.FormatInt(now.UnixNano(), 10)...))
	name := fmt.Sprintf("%d_%s%s", now.Unix(), hex.EncodeToString(sum[:])[:16], ext)

	if err := s.manifests.Place(dir, name, func(dst string) error {
		return s.staging.Commit(sf, dst)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("image uploaded", "album", dir.Rel(), "name", name, "size", sf.Size)
	return &album.UploadResult{Token: dir.Rel(), File: name, Size: sf.Size}, nil
}

// ImportZip extracts the images of a zip archive into
// destination/<top folder>/..., renaming the top folder to folderName when
// given. Files at the archive root are skipped. Fails with ErrInvalidInput
// when nothing was imported; the report is returned either way.
func (s *AlbumService) ImportZip(ra io.ReaderAt, size int64, destination, folderName string) (*album.ImportReport, error) {
	dest, folder, err := importTarget(destination, folderName)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, album.Errorf(album.ErrInvalidInput, "invalid zip file: %w", err)
	}

	report := &album.ImportReport{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.TrimSpace(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "" {
			report.SkippedPath++
			continue
		}
		if s.ignore.Match(name) {
			report.SkippedHidden++
			continue
		}
		if !fs.IsImageName(name) {
			report.SkippedType++
			continue
		}
		dir, filename, skip := s.importLocation(report, dest, folder, name)
		if skip {
			continue
		}
		if err := s.importOne(report, dir, filename, f.Open, false); err != nil {
			return report, err
		}
	}
	return s.finishImport("zip", report)
}

// ImportFolder imports files dropped as a folder. Each entry's path decides
// its target folder like ImportZip; content is sniffed and a missing or
// wrong extension is replaced by the sniffed one.
func (s *AlbumService) ImportFolder(files []ImportFile, destination, folderName string) (*album.ImportReport, error) {
	dest, folder, err := importTarget(destination, folderName)
	if err != nil {
		return nil, err
	}

	report := &album.ImportReport{}
	for _, f := range files {
		name := strings.TrimLeft(strings.TrimSpace(strings.ReplaceAll(f.Path, "\\", "/")), "/")
		if name == "" || strings.HasSuffix(name, "/") {
			report.SkippedPath++
			continue
		}
		if s.ignore.Match(name) {
			report.SkippedHidden++
			continue
		}
		dir, filename, skip := s.importLocation(report, dest, folder, name)
		if skip {
			continue
		}
		if err := s.importOne(report, dir, filename, f.Open, true); err != nil {
			return report, err
		}
	}
	return s.finishImport("folder", report)
}

// importLocation maps an entry path to its album directory and filename,
// counting the reason when the entry is skipped.
func (s *AlbumService) importLocation(report *album.ImportReport, dest, folder, name string) (*album.Dir, string, bool) {
	relDir := rewriteRelDir(path.Dir(name), folder)
	if relDir == "" {
		report.SkippedRoot++
		return nil, "", true
	}
	target := relDir
	if dest != "" {
		target = dest + "/" + relDir
	}
	dir, err := s.resolver.ResolvePath(target)
	if err != nil {
		report.SkippedPath++
		return nil, "", true
	}
	filename, err := fs.ValidateFilename(path.Base(name))
	if err != nil {
		report.SkippedPath++
		return nil, "", true
	}
	return dir, filename, false
}

// importOne stages and places a single entry. Only I/O failures of the
// album itself are returned; per-entry problems are counted.
func (s *AlbumService) importOne(report *album.ImportReport, dir *album.Dir, filename string, open func() (io.ReadCloser, error), sniff bool) error {
	rc, err := open()
	if err != nil {
		report.SkippedPath++
		return nil
	}
	sf, err := s.staging.Stage(rc)
	rc.Close()
	if err != nil {
		if errors.Is(err, album.ErrTooLarge) {
			report.SkippedOversize++
			return nil
		}
		return err
	}
	defer s.staging.Discard(sf)

	if sniff {
		ext := fs.SniffImageType(sf.Head)
		if ext == "" {
			report.SkippedType++
			return nil
		}
		if !fs.IsImageName(filename) {
			filename = strings.TrimSuffix(filename, path.Ext(filename)) + ext
		}
	}

	err = s.manifests.Place(dir, filename, func(dst string) error {
		return s.staging.Commit(sf, dst)
	})
	switch {
	case err == nil:
		report.Imported++
	case errors.Is(err, album.ErrConflict):
		report.SkippedExisting++
	case errors.Is(err, album.ErrInvalidInput):
		report.SkippedPath++
	default:
		return err
	}
	return nil
}

func (s *AlbumService) finishImport(kind string, report *album.ImportReport) (*album.ImportReport, error) {
	args := []any{
		"kind", kind,
		"imported", report.Imported,
		"hidden", report.SkippedHidden,
		"type", report.SkippedType,
		"root", report.SkippedRoot,
		"path", report.SkippedPath,
		"oversize", report.SkippedOversize,
		"existing", report.SkippedExisting,
	}
	if report.Imported == 0 {
		s.logger.Warn("import produced no files", args...)
		return report, album.Errorf(album.ErrInvalidInput, "no valid images found (need jpg/jpeg/png/gif/webp inside folders)")
	}
	s.logger.Info("import completed", args...)
	return report, nil
}

// importTarget validates the destination folder and the optional
// replacement name of the top-level folder.
func importTarget(destination, folderName string) (string, string, error) {
	dest := ""
	if raw := strings.Trim(strings.TrimSpace(destination), "/"); raw != "" {
		p, err := fs.ValidatePath(raw)
		if err != nil {
			return "", "", err
		}
		dest = p
	}
	folder := ""
	if raw := strings.Trim(strings.TrimSpace(folderName), "/"); raw != "" {
		if strings.ContainsAny(raw, "/\\") {
			return "", "", album.Errorf(album.ErrInvalidInput, "folder name must be a single segment")
		}
		p, err := fs.ValidatePath(raw)
		if err != nil {
			return "", "", err
		}
		folder = p
	}
	return dest, folder, nil
}

// rewriteRelDir replaces the top-level folder of relDir with folder when
// folder is set. An entry at the archive root maps to folder (or "").
func rewriteRelDir(relDir, folder string) string {
	relDir = strings.Trim(relDir, "/")
	if relDir == "" || relDir == "." {
		return folder
	}
	var parts []string
	for _, p := range strings.Split(relDir, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return folder
	}
	if folder != "" {
		parts[0] = folder
	}
	return strings.Join(parts, "/")
}
