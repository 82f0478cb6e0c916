// Package archive exports album directories as compressed tarballs into a
// vault and fetches them back.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"albumd/internal/album"
)

// TimeLayout formats the export timestamp embedded in archive names.
const TimeLayout = "20060102-150405"

// skipDirs are album subdirectories that can be rebuilt and are not exported.
var skipDirs = map[string]bool{".thumbs": true}

// Exporter implements album.Exporter on top of a vault and an encryptor.
type Exporter struct {
	vault     album.Vault
	encryptor album.Encryptor
	clock     album.Clock
	logger    album.Logger
}

var _ album.Exporter = (*Exporter)(nil)

// NewExporter creates an Exporter. encryptor may be a passthrough.
func NewExporter(vault album.Vault, encryptor album.Encryptor, clock album.Clock, logger album.Logger) *Exporter {
	return &Exporter{
		vault:     vault,
		encryptor: encryptor,
		clock:     clock,
		logger:    logger,
	}
}

// ArchiveName returns "<name>-<YYYYMMDD-HHMMSS>.tar.gz<suffix>".
func ArchiveName(name string, suffix string, t time.Time) string {
	return fmt.Sprintf("%s-%s.tar.gz%s", name, t.UTC().Format(TimeLayout), suffix)
}

// Export packs dir into an encrypted tar.gz and stores it in the vault.
// The archive is spooled to a temp file first so the vault receives an
// exact size. Returns the stored archive name.
func (e *Exporter) Export(ctx context.Context, dir *album.Dir, name string) (string, error) {
	info, err := os.Stat(dir.String())
	if err != nil {
		return "", album.IOError("stat album", err)
	}
	if !info.IsDir() {
		return "", album.Errorf(album.ErrNotFound, "not a directory: %s", dir.Rel())
	}

	archiveName := ArchiveName(name, e.encryptor.Suffix(), e.clock.Now())
	e.logger.Info("archive export started", "album", dir.Rel(), "archive", archiveName)

	tmp, err := os.CreateTemp("", "albumd-export-*")
	if err != nil {
		return "", album.IOError("creating temp file", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	// Pipe the tarball straight into the encryptor; no plaintext copy on disk.
	pr, pw := io.Pipe()
	packErrCh := make(chan error, 1)
	go func() {
		err := writeTarGz(pw, dir.String(), name)
		pw.CloseWithError(err)
		packErrCh <- err
	}()

	encErr := e.encryptor.Encrypt(pr, tmp)
	pr.CloseWithError(encErr)
	packErr := <-packErrCh

	if packErr != nil && !errors.Is(packErr, io.ErrClosedPipe) {
		return "", album.IOError("packing album", packErr)
	}
	if encErr != nil {
		return "", fmt.Errorf("encrypting archive: %w", encErr)
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", album.IOError("sizing archive", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", album.IOError("rewinding archive", err)
	}
	if err := e.vault.Put(ctx, archiveName, tmp, size); err != nil {
		return "", fmt.Errorf("uploading archive to vault: %w", err)
	}

	e.logger.Info("archive exported", "album", dir.Rel(), "archive", archiveName, "size", size)
	return archiveName, nil
}

// List returns the archives stored in the vault.
func (e *Exporter) List(ctx context.Context) ([]album.ArchiveInfo, error) {
	infos, err := e.vault.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	return infos, nil
}

// Fetch writes the decrypted tar.gz stored under name to w. decryptCtx is
// required unless the name ends in ".tar.gz" and ignored otherwise.
func (e *Exporter) Fetch(ctx context.Context, name string, decryptCtx album.DecryptionContext, w io.Writer) error {
	if strings.HasSuffix(name, ".tar.gz") {
		if err := e.vault.Get(ctx, name, w); err != nil {
			return fmt.Errorf("retrieving archive from vault: %w", err)
		}
		return nil
	}
	if decryptCtx == nil {
		return album.Errorf(album.ErrInvalidInput, "archive is encrypted but no passphrase was provided")
	}

	pr, pw := io.Pipe()
	vaultErrCh := make(chan error, 1)
	go func() {
		err := e.vault.Get(ctx, name, pw)
		pw.CloseWithError(err)
		vaultErrCh <- err
	}()

	decryptErr := decryptCtx.Decrypt(pr, w)
	pr.CloseWithError(decryptErr)
	vaultErr := <-vaultErrCh

	if vaultErr != nil {
		return fmt.Errorf("retrieving archive from vault: %w", vaultErr)
	}
	if decryptErr != nil {
		return fmt.Errorf("decrypting archive: %w", decryptErr)
	}
	return nil
}

// writeTarGz streams the tree under src as a gzip-compressed tar whose
// entries are prefixed with top. Symlinks and the thumbnail cache are skipped.
func writeTarGz(w io.Writer, src, top string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(src, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if d.IsDir() && rel != "." && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = path.Join(top, filepath.ToSlash(rel))
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}
	return nil
}
