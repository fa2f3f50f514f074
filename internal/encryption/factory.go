package encryption

import (
	"fmt"

	"arrivals-go/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor from configuration. A type of
// "none" or empty returns nil, meaning backups are stored unencrypted.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", cfg.Type)
	}
}
