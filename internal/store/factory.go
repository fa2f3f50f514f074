package store

import (
	"fmt"
	"os"
	"path/filepath"

	"arrivals-go/internal/config"
)

// NewStoreFromConfig creates a SQLiteStore based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig, hostID string) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		dbPath, err := DatabasePath(cfg, hostID)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(dbPath)
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// DatabasePath returns the on-disk path of the host's database file. Only
// sqlite databases have one.
func DatabasePath(cfg config.DatabaseConfig, hostID string) (string, error) {
	if cfg.Type != "sqlite" {
		return "", fmt.Errorf("database type %q has no file path", cfg.Type)
	}
	if cfg.DataDir == "" {
		return "", fmt.Errorf("data_dir required for sqlite database")
	}
	return filepath.Join(cfg.DataDir, hostID+".db"), nil
}
