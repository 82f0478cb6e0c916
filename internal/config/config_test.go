package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	symlinks := false
	original := &Config{
		Root:     "/srv/albums",
		LogDir:   "/home/user/.local/share/albumd/log",
		AdminKey: "secret-admin-key",
		LogLevel: "debug",
		Server: ServerConfig{
			Listen:      ":9000",
			BasePath:    "/photos",
			CORSOrigins: []string{"https://example.com"},
		},
		Upload: UploadConfig{MaxMB: 10, Staging: "memory"},
		Slug:   SlugConfig{Salt: "pepper", Symlinks: &symlinks},
		Import: ImportConfig{Ignore: []string{"*.xmp", "Thumbs.db"}},
		Archive: ArchiveConfig{
			VaultType:   "filesystem",
			FSVaultRoot: "/backup/vault",
			Encryption:  "age",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Root != original.Root {
		t.Errorf("Root = %q, want %q", got.Root, original.Root)
	}
	if got.AdminKey != original.AdminKey {
		t.Errorf("AdminKey = %q, want %q", got.AdminKey, original.AdminKey)
	}
	if got.Server.BasePath != "/photos" {
		t.Errorf("Server.BasePath = %q, want %q", got.Server.BasePath, "/photos")
	}
	if len(got.Server.CORSOrigins) != 1 {
		t.Fatalf("len(CORSOrigins) = %d, want 1", len(got.Server.CORSOrigins))
	}
	if got.Upload.Staging != "memory" {
		t.Errorf("Upload.Staging = %q, want %q", got.Upload.Staging, "memory")
	}
	if got.Slug.SymlinksEnabled() {
		t.Error("Slug.SymlinksEnabled() = true, want false")
	}
	if got.Archive.FSVaultRoot != "/backup/vault" {
		t.Errorf("Archive.FSVaultRoot = %q, want %q", got.Archive.FSVaultRoot, "/backup/vault")
	}
	if len(got.Import.Ignore) != 2 {
		t.Fatalf("len(Import.Ignore) = %d, want 2", len(got.Import.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/srv/albums", "/data/albumd", "admin-key-1", "salt")

	if cfg.Root != "/srv/albums" {
		t.Errorf("Root = %q, want %q", cfg.Root, "/srv/albums")
	}
	if cfg.LogDir != "/data/albumd/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/albumd/log")
	}
	if cfg.Archive.PublicKeyPath != "/data/albumd/keys/archive.pub" {
		t.Errorf("Archive.PublicKeyPath = %q", cfg.Archive.PublicKeyPath)
	}
	if cfg.Archive.PrivateKeyPath != "/data/albumd/keys/archive.key" {
		t.Errorf("Archive.PrivateKeyPath = %q", cfg.Archive.PrivateKeyPath)
	}
	if cfg.Server.Listen != DefaultListen {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, DefaultListen)
	}
	if cfg.Upload.StagingDir != "/srv/albums/.staging" {
		t.Errorf("Upload.StagingDir = %q", cfg.Upload.StagingDir)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestUploadConfig_Sizes(t *testing.T) {
	var u UploadConfig
	if got := u.MaxBytes(); got != 25<<20 {
		t.Errorf("MaxBytes() = %d, want %d", got, 25<<20)
	}
	if got := u.StagingCapacityBytes(); got != 512<<20 {
		t.Errorf("StagingCapacityBytes() = %d, want %d", got, 512<<20)
	}
	if got := u.ImportMaxBytes(); got != 1<<30 {
		t.Errorf("ImportMaxBytes() = %d, want %d", got, 1<<30)
	}
	u.MaxMB = 3
	if got := u.MaxBytes(); got != 3<<20 {
		t.Errorf("MaxBytes() = %d, want %d", got, 3<<20)
	}
	u.ImportMaxMB = 40
	if got := u.ImportMaxBytes(); got != 40<<20 {
		t.Errorf("ImportMaxBytes() = %d, want %d", got, 40<<20)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvRoot:     "/env/root",
		EnvAdminKey: "  env-admin-key ",
		EnvListen:   "",
	}
	cfg := &Config{Root: "/file/root", Server: ServerConfig{Listen: ":1234"}}

	ApplyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Root != "/env/root" {
		t.Errorf("Root = %q, want %q", cfg.Root, "/env/root")
	}
	if cfg.AdminKey != "env-admin-key" {
		t.Errorf("AdminKey = %q, want %q", cfg.AdminKey, "env-admin-key")
	}
	if cfg.Server.Listen != ":1234" {
		t.Errorf("Server.Listen = %q, want unchanged", cfg.Server.Listen)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return NewConfig("/srv/albums", "/data", "admin-key-1", "")
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing root", mutate: func(c *Config) { c.Root = "" }, wantErr: "Root is required"},
		{name: "missing admin key", mutate: func(c *Config) { c.AdminKey = "" }, wantErr: "AdminKey is required"},
		{name: "short admin key", mutate: func(c *Config) { c.AdminKey = "abc" }, wantErr: "'min'"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "'oneof'"},
		{name: "unknown vault", mutate: func(c *Config) { c.Archive.VaultType = "ftp" }, wantErr: "'oneof'"},
		{name: "filesystem vault without root", mutate: func(c *Config) { c.Archive.VaultType = "filesystem" }, wantErr: "fs_vault_root"},
		{name: "s3 vault without bucket", mutate: func(c *Config) { c.Archive.VaultType = "s3" }, wantErr: "s3_bucket"},
		{name: "export without vault", mutate: func(c *Config) { c.Archive.ExportOnArchive = true }, wantErr: "export_on_archive"},
		{name: "filesystem staging without dir", mutate: func(c *Config) { c.Upload.StagingDir = "" }, wantErr: "staging_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "albumd.toml")
		cfg := NewConfig(dir, dir, "admin-key-1", "")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config file mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "albumd.toml")
		cfg := NewConfig(dir, dir, "admin-key-1", "")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads, overrides and validates", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "albumd.toml")
		if err := Init(path, NewConfig(dir, dir, "admin-key-1", "")); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := Load(path, func(k string) string {
			if k == EnvSlugSalt {
				return "from-env"
			}
			return ""
		})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Slug.Salt != "from-env" {
			t.Errorf("Slug.Salt = %q, want %q", got.Slug.Salt, "from-env")
		}
		if got.RateLimit.Window().Seconds() != DefaultRateWindowSeconds {
			t.Errorf("RateLimit.Window() = %v", got.RateLimit.Window())
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "albumd.toml")
		if err := os.WriteFile(path, []byte("root = \"\"\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, func(string) string { return "" }); err == nil {
			t.Fatal("Load() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "albumd.toml")
		cfg := NewConfig("/srv/read-test", dir, "admin-key-1", "")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Root != "/srv/read-test" {
			t.Errorf("Root = %q, want %q", got.Root, "/srv/read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/albumd.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
