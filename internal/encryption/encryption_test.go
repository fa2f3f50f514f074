package encryption

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arrivals-go/internal/config"
)

func ageConfig(t *testing.T) config.EncryptionConfig {
	t.Helper()
	dir := t.TempDir()
	return config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "arv.pub"),
		PrivateKeyPath: filepath.Join(dir, "arv.key"),
	}
}

func TestAgeEncryptor_roundTrip(t *testing.T) {
	t.Parallel()

	enc := NewAgeEncryptor(ageConfig(t))

	if enc.IsConfigured() {
		t.Fatal("IsConfigured() = true before Setup")
	}

	if err := enc.Setup("correct horse battery staple"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !enc.IsConfigured() {
		t.Fatal("IsConfigured() = false after Setup")
	}

	plaintext := "snapshot database bytes"
	var ciphertext bytes.Buffer
	if err := enc.Encrypt(strings.NewReader(plaintext), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if strings.Contains(ciphertext.String(), plaintext) {
		t.Error("ciphertext contains the plaintext")
	}

	ctx, err := enc.Unlock("correct horse battery staple")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	var decrypted bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(ciphertext.Bytes()), &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if decrypted.String() != plaintext {
		t.Errorf("Decrypt() = %q, want %q", decrypted.String(), plaintext)
	}
}

func TestAgeEncryptor_wrongPassphrase(t *testing.T) {
	t.Parallel()

	enc := NewAgeEncryptor(ageConfig(t))
	if err := enc.Setup("right"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := enc.Unlock("wrong"); err == nil {
		t.Fatal("Unlock() error = nil with wrong passphrase")
	}
}

func TestAgeEncryptor_publicKeyIsPlaintext(t *testing.T) {
	t.Parallel()

	cfg := ageConfig(t)
	enc := NewAgeEncryptor(cfg)
	if err := enc.Setup("pass"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	pub, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		t.Fatalf("reading public key: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(pub)), "age1") {
		t.Errorf("public key = %q, want an age recipient line", pub)
	}
}

func TestTestEncryptor_roundTrip(t *testing.T) {
	t.Parallel()

	enc := NewTestEncryptor()
	if err := enc.Setup("whatever"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var out bytes.Buffer
	if err := enc.Encrypt(strings.NewReader("payload"), &out); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), testHeader) {
		t.Errorf("Encrypt() output = %q, want %q prefix", out.String(), testHeader)
	}

	ctx, err := enc.Unlock("whatever")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var plain bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(out.Bytes()), &plain); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if plain.String() != "payload" {
		t.Errorf("Decrypt() = %q, want %q", plain.String(), "payload")
	}
}

func TestTestDecryptionContext_rejectsBadHeader(t *testing.T) {
	t.Parallel()

	ctx := &TestDecryptionContext{}
	var out bytes.Buffer
	if err := ctx.Decrypt(strings.NewReader("XXXXXXgarbage"), &out); err == nil {
		t.Fatal("Decrypt() error = nil, want header error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("none returns nil", func(t *testing.T) {
		for _, typ := range []string{"", "none"} {
			enc, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: typ})
			if err != nil {
				t.Fatalf("NewEncryptorFromConfig(%q) error = %v", typ, err)
			}
			if enc != nil {
				t.Errorf("NewEncryptorFromConfig(%q) = %T, want nil", typ, enc)
			}
		}
	})

	t.Run("age", func(t *testing.T) {
		enc, err := NewEncryptorFromConfig(ageConfig(t))
		if err != nil {
			t.Fatalf("NewEncryptorFromConfig() error = %v", err)
		}
		if _, ok := enc.(*AgeEncryptor); !ok {
			t.Errorf("NewEncryptorFromConfig() = %T, want *AgeEncryptor", enc)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
			t.Fatal("NewEncryptorFromConfig() error = nil, want error")
		}
	})
}
