package archive

import "io"

// Archive stores versioned copies of the store database off-box. A backup is
// uploaded after every mutating run, versioned by the operation id that
// produced it; on startup the version check refuses to run against a local
// database that is behind the archive.
type Archive interface {
	// PutBackup stores a named backup and its version marker.
	PutBackup(name string, r io.Reader, size int64, version int64) error

	// GetBackup retrieves a named backup and writes it to w.
	GetBackup(name string, w io.Writer) error

	// BackupVersion returns the stored version for a named backup, or 0
	// when none has been stored yet.
	BackupVersion(name string) (int64, error)

	// ValidateSetup checks the backend is reachable and writable.
	ValidateSetup() error
}
