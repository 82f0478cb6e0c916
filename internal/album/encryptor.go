package album

import "io"

// Encryptor handles encryption of exported archives and unlocking for
// decryption. Encryption uses the public key only, so exports need no
// user intervention. Decryption requires a passphrase to unlock the private
// key, producing a DecryptionContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `albumd keys init`.
	// Generates a key pair, stores the public key in plaintext, and encrypts
	// the private key with the provided passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext. Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist at configured paths.
	IsConfigured() bool

	// Suffix is appended to archive names produced with this encryptor.
	Suffix() string
}

// DecryptionContext holds an unlocked private key in memory for the
// duration of a fetch. The unlocked key is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
