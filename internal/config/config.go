package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for albumd.
type Config struct {
	Root     string `toml:"root" validate:"required"`
	LogDir   string `toml:"log_dir"`
	AdminKey string `toml:"admin_key" validate:"required,min=8"`
	LogLevel string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	Server    ServerConfig    `toml:"server"`
	Upload    UploadConfig    `toml:"upload"`
	Slug      SlugConfig      `toml:"slug"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Import    ImportConfig    `toml:"import"`
	Archive   ArchiveConfig   `toml:"archive"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen      string   `toml:"listen" validate:"required"`
	BasePath    string   `toml:"base_path"`
	SiteDomain  string   `toml:"site_domain"`
	CORSOrigins []string `toml:"cors_origins"`
}

// UploadConfig holds upload limits and the staging area settings.
// This uses a tagged union pattern - Staging determines which other fields are relevant.
type UploadConfig struct {
	MaxMB         int     `toml:"max_mb" validate:"gte=0,lte=4096"`
	ImportMaxMB   int     `toml:"import_max_mb" validate:"gte=0,lte=65536"`
	RatePerSecond float64 `toml:"rate_per_second" validate:"gte=0"`
	Burst         int     `toml:"burst" validate:"gte=0"`

	Staging           string `toml:"staging" validate:"omitempty,oneof=memory filesystem"`
	StagingDir        string `toml:"staging_dir,omitempty"` // only used for staging=filesystem
	StagingCapacityMB int    `toml:"staging_capacity_mb" validate:"gte=0"`
}

// MaxBytes returns the per-file upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxMB <= 0 {
		return DefaultMaxMB << 20
	}
	return int64(u.MaxMB) << 20
}

// ImportMaxBytes returns the limit on a whole zip or folder import request.
func (u UploadConfig) ImportMaxBytes() int64 {
	if u.ImportMaxMB <= 0 {
		return DefaultImportMaxMB << 20
	}
	return int64(u.ImportMaxMB) << 20
}

// StagingCapacityBytes returns the staging area capacity in bytes.
func (u UploadConfig) StagingCapacityBytes() int64 {
	if u.StagingCapacityMB <= 0 {
		return DefaultStagingCapacityMB << 20
	}
	return int64(u.StagingCapacityMB) << 20
}

// SlugConfig holds the slug hashing salt and the symlink shim toggle.
type SlugConfig struct {
	Salt     string `toml:"salt"`
	Symlinks *bool  `toml:"symlinks"`
}

// SymlinksEnabled reports whether slug symlinks are maintained. Default true.
func (s SlugConfig) SymlinksEnabled() bool {
	return s.Symlinks == nil || *s.Symlinks
}

// RateLimitConfig configures the sliding window guarding album lookups.
type RateLimitConfig struct {
	Limit         int `toml:"limit" validate:"gte=0"`
	WindowSeconds int `toml:"window_seconds" validate:"gte=0"`
	MaxKeys       int `toml:"max_keys" validate:"gte=0"`
	SweepEvery    int `toml:"sweep_every" validate:"gte=0"`
}

// Window returns the window length.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// AnalyticsConfig holds visit log settings.
type AnalyticsConfig struct {
	LogMaxBytes int64  `toml:"log_max_bytes" validate:"gte=0"`
	GeoIPDB     string `toml:"geoip_db"`
}

// ImportConfig holds zip and folder import settings.
type ImportConfig struct {
	Ignore []string `toml:"ignore"`
}

// ArchiveConfig configures album export on removal.
// This uses a tagged union pattern - VaultType determines which other fields are relevant.
type ArchiveConfig struct {
	VaultType string `toml:"vault_type" validate:"omitempty,oneof=memory filesystem s3"`
	VaultName string `toml:"vault_name,omitempty"`
	// ExportOnArchive exports albums to the vault when they are archived.
	ExportOnArchive bool `toml:"export_on_archive"`

	// FileSystem-specific fields (only used when VaultType == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`

	// S3-specific fields (only used when VaultType == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	Encryption     string `toml:"encryption" validate:"omitempty,oneof=none age test"`
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(root, baseDir, adminKey, salt string) *Config {
	cfg := &Config{
		Root:     root,
		LogDir:   filepath.Join(baseDir, "log"),
		AdminKey: adminKey,
		Slug:     SlugConfig{Salt: salt},
		Archive: ArchiveConfig{
			Encryption:     "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "archive.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "archive.key"),
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the file at path, applies environment overrides and defaults,
// and validates the result.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, getenv)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// The file holds the admin key, so it is created owner-readable only.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
