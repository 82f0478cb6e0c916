package encryption

import (
	"fmt"
	"io"

	"albumd/internal/album"
)

// NoneEncryptor stores archives in plaintext.
type NoneEncryptor struct{}

var _ album.Encryptor = NoneEncryptor{}

func (NoneEncryptor) Setup(string) error { return nil }

func (NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (NoneEncryptor) Unlock(string) (album.DecryptionContext, error) {
	return plainContext{}, nil
}

func (NoneEncryptor) IsConfigured() bool { return true }

func (NoneEncryptor) Suffix() string { return "" }

type plainContext struct{}

func (plainContext) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
