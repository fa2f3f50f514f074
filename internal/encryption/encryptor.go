package encryption

import "io"

// Encryptor protects archived database backups at rest. Encryption uses a
// public key only; decryption requires unlocking the private key with a
// passphrase first.
type Encryptor interface {
	// Setup generates and stores the key material, protecting the private
	// half with the passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with the passphrase and returns a
	// context that can decrypt backups.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material exists.
	IsConfigured() bool
}

// DecryptionContext holds unlocked key material for decrypting backups.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
