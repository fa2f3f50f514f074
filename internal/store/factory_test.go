package store_test

import (
	"path/filepath"
	"testing"

	"arrivals-go/internal/config"
	"arrivals-go/internal/store"
)

func TestDatabasePath(t *testing.T) {
	t.Parallel()

	t.Run("joins data dir and host id", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: "/var/lib/arv"}
		got, err := store.DatabasePath(cfg, "host1")
		if err != nil {
			t.Fatalf("DatabasePath() error = %v", err)
		}
		want := filepath.Join("/var/lib/arv", "host1.db")
		if got != want {
			t.Errorf("DatabasePath() = %q, want %q", got, want)
		}
	})

	t.Run("memory databases have no file path", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "memory"}
		if _, err := store.DatabasePath(cfg, "host1"); err == nil {
			t.Error("DatabasePath() succeeded for a memory database")
		}
	})

	t.Run("requires a data dir", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite"}
		if _, err := store.DatabasePath(cfg, "host1"); err == nil {
			t.Error("DatabasePath() succeeded without a data dir")
		}
	})
}
