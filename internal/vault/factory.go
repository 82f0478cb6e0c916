package vault

import (
	"context"
	"fmt"

	"albumd/internal/album"
	"albumd/internal/config"
)

// NewVaultFromConfig creates a Vault implementation based on the archive
// config. An empty vault_type disables archive export and returns nil.
func NewVaultFromConfig(ctx context.Context, cfg config.ArchiveConfig) (album.Vault, error) {
	name := cfg.VaultName
	if name == "" {
		name = "archives"
	}

	switch cfg.VaultType {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryVault(name), nil
	case "s3":
		v, err := NewS3Vault(ctx, name, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		v, err := NewFileSystemVault(name, cfg.FSVaultRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.VaultType)
	}
}
