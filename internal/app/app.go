package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"albumd/internal/album"
	"albumd/internal/analytics"
	"albumd/internal/archive"
	"albumd/internal/config"
	"albumd/internal/encryption"
	"albumd/internal/fs"
	"albumd/internal/geo"
	"albumd/internal/manifest"
	"albumd/internal/ratelimit"
	"albumd/internal/server"
	"albumd/internal/service"
	"albumd/internal/slug"
	"albumd/internal/staging"
	"albumd/internal/thumb"
	"albumd/internal/tree"
	"albumd/internal/vault"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 15 * time.Second

// App is the application layer between the CLI and AlbumService.
// It constructs all dependencies from config, exposes the operations the
// CLI needs beyond the service, and releases resources on Close.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	logFile   *os.File
	root      *fs.Root
	service   *service.AlbumService
	encryptor album.Encryptor
	vault     album.Vault
	exporter  *archive.Exporter
	closeGeo  func() error
}

// New creates a fully wired App from the given config.
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return newApp(ctx, cfg, os.Stderr)
}

func newApp(ctx context.Context, cfg *config.Config, console io.Writer) (*App, error) {
	logger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a := &App{cfg: cfg, logger: logger, logFile: logFile}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.cfg
	log := NewLogger(a.logger)
	clock := album.RealClock{}

	root, err := fs.NewRoot(cfg.Root)
	if err != nil {
		return err
	}
	a.root = root

	locator, closeGeo, err := geo.New(cfg.Analytics.GeoIPDB)
	if err != nil {
		return fmt.Errorf("opening geolocation database: %w", err)
	}
	a.closeGeo = closeGeo

	sa, err := staging.NewStagingAreaFromConfig(cfg.Upload)
	if err != nil {
		return fmt.Errorf("creating staging area: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Archive)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	v, err := vault.NewVaultFromConfig(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	a.vault = v

	slugs := slug.NewRegistry(root.String(), cfg.Slug.Salt, cfg.Slug.SymlinksEnabled(), log)
	deps := service.Deps{
		Resolver:        root,
		Manifests:       manifest.NewStore(clock, log),
		Tree:            tree.NewBuilder(root.Root(), slugs, log),
		Slugs:           slugs,
		Visits:          analytics.NewStore(root.String(), clock, locator, log, analytics.WithMaxLogBytes(cfg.Analytics.LogMaxBytes)),
		Staging:         sa,
		Thumbs:          thumb.NewCache(log),
		Clock:           clock,
		Logger:          log,
		ImportIgnore:    cfg.Import.Ignore,
		ExportOnArchive: cfg.Archive.ExportOnArchive,
	}
	if v != nil {
		a.exporter = archive.NewExporter(v, enc, clock, log)
		deps.Exporter = a.exporter
	}
	a.service = service.NewAlbumService(deps)
	return nil
}

// Service returns the wired album service.
func (a *App) Service() *service.AlbumService {
	return a.service
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler builds the HTTP handler with the configured limits.
func (a *App) Handler() http.Handler {
	cfg := a.cfg
	return server.New(server.Options{
		Service:        a.service,
		Logger:         a.logger,
		Clock:          album.RealClock{},
		AdminKey:       cfg.AdminKey,
		BasePath:       cfg.Server.BasePath,
		SiteDomain:     cfg.Server.SiteDomain,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes(),
		MaxImportBytes: cfg.Upload.ImportMaxBytes(),
		Lookups: ratelimit.NewWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window(),
			ratelimit.WithMaxKeys(cfg.RateLimit.MaxKeys),
			ratelimit.WithSweepEvery(cfg.RateLimit.SweepEvery),
		),
		Uploads: ratelimit.NewBucket(cfg.Upload.RatePerSecond, cfg.Upload.Burst),
	}).Handler()
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", srv.Addr), zap.String("root", a.root.String()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// SetupKeys generates the archive key pair protected by passphrase. Only
// age encryption uses keys; existing keys are never replaced.
func (a *App) SetupKeys(passphrase string) error {
	if _, ok := a.encryptor.(*encryption.AgeEncryptor); !ok {
		return album.Errorf(album.ErrUnsupported, "archive encryption %q has no keys", a.cfg.Archive.Encryption)
	}
	return a.encryptor.Setup(passphrase)
}

// ExportArchive exports the album at rawPath to the vault.
func (a *App) ExportArchive(ctx context.Context, rawPath string) (string, error) {
	return a.service.ExportArchive(ctx, rawPath)
}

// ListArchives returns the archives stored in the vault.
func (a *App) ListArchives(ctx context.Context) ([]album.ArchiveInfo, error) {
	if a.exporter == nil {
		return nil, album.Errorf(album.ErrUnsupported, "archive export is not configured")
	}
	return a.exporter.List(ctx)
}

// NeedsPassphrase reports whether fetching the named archive requires
// unlocking the private key.
func (a *App) NeedsPassphrase(name string) bool {
	return !strings.HasSuffix(name, ".tar.gz")
}

// FetchArchive writes the decrypted tar.gz of the named archive to w.
// passphrase is ignored for plaintext archives.
func (a *App) FetchArchive(ctx context.Context, name, passphrase string, w io.Writer) error {
	if a.exporter == nil {
		return album.Errorf(album.ErrUnsupported, "archive export is not configured")
	}
	var dc album.DecryptionContext
	if a.NeedsPassphrase(name) {
		var err error
		if dc, err = a.encryptor.Unlock(passphrase); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.exporter.Fetch(ctx, name, dc, w)
}

// ValidateVault checks that the configured vault is reachable.
func (a *App) ValidateVault(ctx context.Context) error {
	if a.vault == nil {
		return album.Errorf(album.ErrUnsupported, "archive export is not configured")
	}
	return a.vault.ValidateSetup(ctx)
}

// Close releases the geolocation database and flushes the log.
func (a *App) Close() error {
	var firstErr error
	if a.closeGeo != nil {
		if err := a.closeGeo(); err != nil {
			firstErr = fmt.Errorf("closing geolocation database: %w", err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
