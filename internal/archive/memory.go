package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// MemoryArchive is an in-memory implementation of the Archive interface,
// useful for testing. Safe for concurrent use.
type MemoryArchive struct {
	name     string
	backups  map[string][]byte
	versions map[string]int64
	mu       sync.RWMutex
}

var _ Archive = (*MemoryArchive)(nil)

// NewMemoryArchive creates a new in-memory archive with the given name.
func NewMemoryArchive(name string) *MemoryArchive {
	return &MemoryArchive{
		name:     name,
		backups:  make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

// PutBackup stores a named backup and its version marker.
func (m *MemoryArchive) PutBackup(name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.backups[name] = data
	m.versions[name] = version
	return nil
}

// GetBackup retrieves a named backup and writes it to w.
func (m *MemoryArchive) GetBackup(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.backups[name]
	if !ok {
		return fmt.Errorf("backup not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// BackupVersion returns the stored version for a named backup.
// Returns 0 when no backup has been stored under this name.
func (m *MemoryArchive) BackupVersion(name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[name], nil
}

// ValidateSetup always succeeds for the in-memory archive.
func (m *MemoryArchive) ValidateSetup() error {
	return nil
}
