package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"albumd/internal/album"
	"albumd/internal/config"
	"albumd/internal/fs"
)

// AgeSuffix marks age-sealed archives.
const AgeSuffix = ".age"

// Comment lines written above the keys. age's parsers skip them.
const (
	recipientComment = "# albumd archive recipient"
	identityComment  = "# albumd archive identity"
)

// AgeEncryptor seals exported archives to an X25519 recipient. The
// recipient is stored in plaintext so exports run unattended; the matching
// identity is stored scrypt-sealed under the operator's passphrase and is
// only opened by Unlock when an archive is fetched.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string
	// workFactor overrides the scrypt cost when non-zero.
	workFactor int

	mu        sync.Mutex
	recipient age.Recipient
}

var _ album.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an AgeEncryptor over the configured key files.
func NewAgeEncryptor(cfg config.ArchiveConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup creates the archive key pair. Existing keys are never replaced:
// archives already in the vault can only be opened with them.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return album.Errorf(album.ErrInvalidInput, "passphrase must not be empty")
	}
	if e.IsConfigured() {
		return album.Errorf(album.ErrConflict, "archive keys already exist at %s", e.publicKeyPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating archive key pair: %w", err)
	}
	sealer, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return album.Errorf(album.ErrInvalidInput, "passphrase: %w", err)
	}
	if e.workFactor > 0 {
		sealer.SetWorkFactor(e.workFactor)
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, sealer)
	if err != nil {
		return fmt.Errorf("sealing archive identity: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n%s\n", identityComment, identity); err != nil {
		return fmt.Errorf("sealing archive identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sealing archive identity: %w", err)
	}

	for _, p := range []string{e.privateKeyPath, e.publicKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return album.IOError("creating key directory", err)
		}
	}
	// The identity goes first so IsConfigured only turns true once both
	// files are in place.
	if err := fs.WriteFileAtomic(e.privateKeyPath, sealed.Bytes(), 0600); err != nil {
		return album.IOError("writing archive identity", err)
	}
	public := fmt.Sprintf("%s\n%s\n", recipientComment, identity.Recipient())
	if err := fs.WriteFileAtomic(e.publicKeyPath, []byte(public), 0644); err != nil {
		return album.IOError("writing archive recipient", err)
	}

	e.mu.Lock()
	e.recipient = nil
	e.mu.Unlock()
	return nil
}

// Encrypt streams r into w sealed to the archive recipient.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.archiveRecipient()
	if err != nil {
		return err
	}
	aw, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("starting archive encryption: %w", err)
	}
	if _, err := io.Copy(aw, r); err != nil {
		return fmt.Errorf("encrypting archive: %w", err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("finishing archive encryption: %w", err)
	}
	return nil
}

// Unlock opens the sealed identity with passphrase. A wrong passphrase is
// ErrInvalidInput.
func (e *AgeEncryptor) Unlock(passphrase string) (album.DecryptionContext, error) {
	sealed, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, album.Errorf(album.ErrNotFound, "archive keys are not set up, run `albumd keys init`")
		}
		return nil, album.IOError("reading archive identity", err)
	}

	opener, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, album.Errorf(album.ErrInvalidInput, "passphrase: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(sealed), opener)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, album.Errorf(album.ErrInvalidInput, "wrong passphrase")
		}
		return nil, album.Errorf(album.ErrInvalidInput, "archive identity is damaged: %w", err)
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, album.Errorf(album.ErrInvalidInput, "archive identity is damaged: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(text))
	if err != nil || len(identities) == 0 {
		return nil, album.Errorf(album.ErrInvalidInput, "archive identity is damaged: no key found")
	}
	return &AgeDecryptionContext{identity: identities[0]}, nil
}

// IsConfigured reports whether both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Suffix returns ".age".
func (e *AgeEncryptor) Suffix() string { return AgeSuffix }

// archiveRecipient parses the public key once and caches it.
func (e *AgeEncryptor) archiveRecipient() (age.Recipient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recipient != nil {
		return e.recipient, nil
	}

	data, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, album.Errorf(album.ErrUnsupported, "archive keys are not set up, run `albumd keys init`")
		}
		return nil, album.IOError("reading archive recipient", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil || len(recipients) == 0 {
		return nil, album.Errorf(album.ErrInvalidInput, "archive recipient in %s is unreadable", e.publicKeyPath)
	}
	e.recipient = recipients[0]
	return e.recipient, nil
}

// AgeDecryptionContext holds an unlocked archive identity.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ album.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt streams the archive sealed in r into w. Input that is not an age
// file, or was sealed to another key, is ErrInvalidInput.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	ar, err := age.Decrypt(r, c.identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return album.Errorf(album.ErrInvalidInput, "archive was sealed to a different key")
		}
		return album.Errorf(album.ErrInvalidInput, "not an age archive: %w", err)
	}
	if _, err := io.Copy(w, ar); err != nil {
		return fmt.Errorf("decrypting archive: %w", err)
	}
	return nil
}
