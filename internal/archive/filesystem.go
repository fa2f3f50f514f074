package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileSystemArchive stores backups as files under a root directory:
//
//	<root>/
//	  <name>          (the backup itself)
//	  <name>.version  (decimal version marker)
type FileSystemArchive struct {
	name string
	root string
}

var _ Archive = (*FileSystemArchive)(nil)

// NewFileSystemArchive creates a filesystem archive rooted at the given path.
func NewFileSystemArchive(name, root string) (*FileSystemArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileSystemArchive{name: name, root: root}, nil
}

// PutBackup stores a named backup and its version marker. The backup is
// written to a temp file first and renamed into place so a crashed upload
// never leaves a truncated backup under the final name.
func (a *FileSystemArchive) PutBackup(name string, r io.Reader, size int64, version int64) error {
	destPath := filepath.Join(a.root, name)

	tmp, err := os.CreateTemp(a.root, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if written != size {
		os.Remove(tmpPath)
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move backup into place: %w", err)
	}

	versionPath := destPath + ".version"
	if err := os.WriteFile(versionPath, []byte(strconv.FormatInt(version, 10)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write version marker: %w", err)
	}
	return nil
}

// GetBackup retrieves a named backup and writes it to w.
func (a *FileSystemArchive) GetBackup(name string, w io.Writer) error {
	f, err := os.Open(filepath.Join(a.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("backup not found: %s", name)
		}
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	return nil
}

// BackupVersion returns the stored version for a named backup.
// Returns 0 when no version marker exists.
func (a *FileSystemArchive) BackupVersion(name string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(a.root, name+".version"))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read version marker: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version marker for %s: %w", name, err)
	}
	return version, nil
}

// ValidateSetup checks the archive root is a writable directory.
func (a *FileSystemArchive) ValidateSetup() error {
	info, err := os.Stat(a.root)
	if err != nil {
		return fmt.Errorf("archive root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive root is not a directory: %s", a.root)
	}

	probe, err := os.CreateTemp(a.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("archive root not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
