package encryption

import (
	"bytes"
	"fmt"
	"io"
)

const testHeader = "ARVENC"

// TestEncryptor is a trivial Encryptor for tests. It prepends a fixed header
// to the data instead of encrypting it. Not for production use.
type TestEncryptor struct {
	configured bool
}

var _ Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, testHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

// TestDecryptionContext strips the fixed header written by TestEncryptor.
type TestDecryptionContext struct{}

var _ DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, []byte(testHeader)) {
		return fmt.Errorf("unexpected header %q", header)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
