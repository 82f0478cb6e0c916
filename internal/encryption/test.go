package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"albumd/internal/album"
)

// TestSuffix marks archives sealed by TestEncryptor.
const TestSuffix = ".testenc"

// testMagic opens every archive sealed by TestEncryptor.
var testMagic = []byte("ALBUMD-TEST\n")

// testMask is XORed over the payload so sealed archives never contain the
// plaintext tar stream.
const testMask = 0x5a

// TestEncryptor seals archives reversibly without any cryptography. When
// Setup was called, Unlock requires the same passphrase.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
}

var _ album.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that accepts any passphrase.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return album.Errorf(album.ErrInvalidInput, "passphrase must not be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing archive header: %w", err)
	}
	if _, err := io.Copy(maskWriter{w}, r); err != nil {
		return fmt.Errorf("encrypting archive: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (album.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, album.Errorf(album.ErrInvalidInput, "wrong passphrase")
	}
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

func (e *TestEncryptor) Suffix() string { return TestSuffix }

// TestDecryptionContext opens archives sealed by TestEncryptor.
type TestDecryptionContext struct{}

var _ album.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	header := make([]byte, len(testMagic))
	if _, err := io.ReadFull(br, header); err != nil || !bytes.Equal(header, testMagic) {
		return album.Errorf(album.ErrInvalidInput, "not a test-sealed archive")
	}
	if _, err := io.Copy(maskWriter{w}, br); err != nil {
		return fmt.Errorf("decrypting archive: %w", err)
	}
	return nil
}

// maskWriter XORs every byte with testMask on its way to w.
type maskWriter struct {
	w io.Writer
}

func (m maskWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for i, b := range p {
		buf[i] = b ^ testMask
	}
	return m.w.Write(buf)
}
