package testutil

import (
	"albumd/internal/album"
	"albumd/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() album.Encryptor {
	return encryption.NewTestEncryptor()
}
