package testutil

import (
	"albumd/internal/album"
	"albumd/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() album.Vault {
	return vault.NewMemoryVault("test-vault")
}
