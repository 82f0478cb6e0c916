package testutil

import (
	"albumd/internal/album"
	"albumd/internal/staging"
)

const (
	// DefaultStagingMaxSize is the default capacity for test staging areas (10MB).
	DefaultStagingMaxSize = 10 * 1024 * 1024
	// DefaultMaxFileSize is the default per-upload limit for tests (1MB).
	DefaultMaxFileSize = 1024 * 1024
)

// NewTestStagingArea creates a new in-memory staging area for testing.
func NewTestStagingArea() album.StagingArea {
	return staging.NewMemoryStagingArea(DefaultMaxFileSize, DefaultStagingMaxSize)
}

// NewTestStagingAreaWithLimit creates an in-memory staging area with a custom per-file limit.
func NewTestStagingAreaWithLimit(maxFileSize int64) album.StagingArea {
	return staging.NewMemoryStagingArea(maxFileSize, DefaultStagingMaxSize)
}
