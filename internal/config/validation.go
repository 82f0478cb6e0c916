package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags and the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	switch cfg.Archive.VaultType {
	case "filesystem":
		if cfg.Archive.FSVaultRoot == "" {
			return fmt.Errorf("archive: fs_vault_root is required for the filesystem vault")
		}
	case "s3":
		if cfg.Archive.S3Bucket == "" {
			return fmt.Errorf("archive: s3_bucket is required for the s3 vault")
		}
	}
	if cfg.Archive.ExportOnArchive && cfg.Archive.VaultType == "" {
		return fmt.Errorf("archive: export_on_archive needs a vault_type")
	}
	if cfg.Upload.Staging == "filesystem" && cfg.Upload.StagingDir == "" {
		return fmt.Errorf("upload: staging_dir is required for filesystem staging")
	}
	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		if e.Tag() == "required" {
			return fmt.Errorf("%s is required", e.Namespace())
		}
		return fmt.Errorf("%s: validation failed on '%s' tag", e.Namespace(), e.Tag())
	}
	return fmt.Errorf("validating config: %w", err)
}
