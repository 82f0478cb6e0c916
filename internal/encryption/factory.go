package encryption

import (
	"fmt"

	"albumd/internal/album"
	"albumd/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the archive
// encryption setting.
func NewEncryptorFromConfig(cfg config.ArchiveConfig) (album.Encryptor, error) {
	switch cfg.Encryption {
	case "none", "":
		return NoneEncryptor{}, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Encryption)
	}
}
