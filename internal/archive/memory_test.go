package archive

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryArchive(t *testing.T) {
	t.Parallel()

	t.Run("round trip with version", func(t *testing.T) {
		a := NewMemoryArchive("test")

		data := "db contents"
		if err := a.PutBackup("host1.db", strings.NewReader(data), int64(len(data)), 7); err != nil {
			t.Fatalf("PutBackup() error = %v", err)
		}

		var buf bytes.Buffer
		if err := a.GetBackup("host1.db", &buf); err != nil {
			t.Fatalf("GetBackup() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("GetBackup() = %q, want %q", buf.String(), data)
		}

		version, err := a.BackupVersion("host1.db")
		if err != nil {
			t.Fatalf("BackupVersion() error = %v", err)
		}
		if version != 7 {
			t.Errorf("BackupVersion() = %d, want 7", version)
		}
	})

	t.Run("size mismatch is rejected", func(t *testing.T) {
		a := NewMemoryArchive("test")
		if err := a.PutBackup("host1.db", strings.NewReader("short"), 100, 1); err == nil {
			t.Fatal("PutBackup() error = nil, want size mismatch")
		}
	})

	t.Run("missing backup", func(t *testing.T) {
		a := NewMemoryArchive("test")

		var buf bytes.Buffer
		if err := a.GetBackup("nope.db", &buf); err == nil {
			t.Fatal("GetBackup() error = nil, want not found")
		}

		version, err := a.BackupVersion("nope.db")
		if err != nil {
			t.Fatalf("BackupVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("BackupVersion() = %d, want 0 for missing backup", version)
		}
	})

	t.Run("newer version overwrites", func(t *testing.T) {
		a := NewMemoryArchive("test")

		for version, data := range []string{"v1", "v2"} {
			if err := a.PutBackup("host1.db", strings.NewReader(data), int64(len(data)), int64(version)+1); err != nil {
				t.Fatalf("PutBackup(%s) error = %v", data, err)
			}
		}

		version, err := a.BackupVersion("host1.db")
		if err != nil {
			t.Fatalf("BackupVersion() error = %v", err)
		}
		if version != 2 {
			t.Errorf("BackupVersion() = %d, want 2", version)
		}
	})

	t.Run("validate always passes", func(t *testing.T) {
		if err := NewMemoryArchive("test").ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
