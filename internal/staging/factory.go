package staging

import (
	"fmt"

	"albumd/internal/album"
	"albumd/internal/config"
)

// NewStagingAreaFromConfig creates a StagingArea implementation based on the
// config type.
func NewStagingAreaFromConfig(cfg config.UploadConfig) (album.StagingArea, error) {
	maxFileSize := cfg.MaxBytes()
	capacity := cfg.StagingCapacityBytes()

	switch cfg.Staging {
	case "memory":
		return NewMemoryStagingArea(maxFileSize, capacity), nil
	case "", "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		return NewFileSystemStagingArea(cfg.StagingDir, maxFileSize, capacity)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Staging)
	}
}
