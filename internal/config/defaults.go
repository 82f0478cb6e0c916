package config

import (
	"path/filepath"
	"strings"
)

const (
	DefaultListen            = ":8080"
	DefaultLogLevel          = "info"
	DefaultMaxMB             = 25
	DefaultImportMaxMB       = 1024
	DefaultUploadRate        = 2.0
	DefaultUploadBurst       = 20
	DefaultStagingCapacityMB = 512
	DefaultRateLimit         = 30
	DefaultRateWindowSeconds = 60
	DefaultMaxKeys           = 10000
	DefaultSweepEvery        = 256
	DefaultLogMaxBytes       = 10 << 20
)

// Environment variables overriding file values.
const (
	EnvRoot     = "ALBUMD_ROOT"
	EnvAdminKey = "ALBUMD_ADMIN_KEY"
	EnvSlugSalt = "ALBUMD_SLUG_SALT"
	EnvListen   = "ALBUMD_LISTEN"
	EnvGeoIPDB  = "ALBUMD_GEOIP_DB"
)

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	cfg.Server.BasePath = strings.TrimRight(cfg.Server.BasePath, "/")

	if cfg.Upload.MaxMB == 0 {
		cfg.Upload.MaxMB = DefaultMaxMB
	}
	if cfg.Upload.ImportMaxMB == 0 {
		cfg.Upload.ImportMaxMB = DefaultImportMaxMB
	}
	if cfg.Upload.RatePerSecond == 0 {
		cfg.Upload.RatePerSecond = DefaultUploadRate
	}
	if cfg.Upload.Burst == 0 {
		cfg.Upload.Burst = DefaultUploadBurst
	}
	if cfg.Upload.Staging == "" {
		cfg.Upload.Staging = "filesystem"
	}
	if cfg.Upload.StagingDir == "" && cfg.Root != "" {
		cfg.Upload.StagingDir = filepath.Join(cfg.Root, ".staging")
	}
	if cfg.Upload.StagingCapacityMB == 0 {
		cfg.Upload.StagingCapacityMB = DefaultStagingCapacityMB
	}

	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = DefaultRateLimit
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = DefaultRateWindowSeconds
	}
	if cfg.RateLimit.MaxKeys == 0 {
		cfg.RateLimit.MaxKeys = DefaultMaxKeys
	}
	if cfg.RateLimit.SweepEvery == 0 {
		cfg.RateLimit.SweepEvery = DefaultSweepEvery
	}

	if cfg.Analytics.LogMaxBytes == 0 {
		cfg.Analytics.LogMaxBytes = DefaultLogMaxBytes
	}
	if cfg.Archive.Encryption == "" {
		cfg.Archive.Encryption = "none"
	}
}

// ApplyEnv overrides file values with the ALBUMD_* environment variables
// that are set.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Root, EnvRoot)
	set(&cfg.AdminKey, EnvAdminKey)
	set(&cfg.Slug.Salt, EnvSlugSalt)
	set(&cfg.Server.Listen, EnvListen)
	set(&cfg.Analytics.GeoIPDB, EnvGeoIPDB)
}
