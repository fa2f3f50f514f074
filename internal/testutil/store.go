package testutil

import (
	"testing"

	"arrivals-go/internal/store"
)

// NewTestStore opens an in-memory SQLite store with migrations applied.
// The store is closed automatically on test cleanup.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	if err := s.MigrateUp(); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return s
}
