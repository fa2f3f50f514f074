package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"arrivals-go/internal/archive"
	"arrivals-go/internal/config"
	"arrivals-go/internal/encryption"
	"arrivals-go/internal/store"
)

// RestoreResult describes a completed database restore.
type RestoreResult struct {
	OutputPath string
	Version    int64
	Decrypted  bool
}

// RestoreBackup downloads the host's archived database backup and writes it
// next to the live database with a .restored suffix. The live database is
// never touched; the caller inspects the restored file and moves it into
// place. When the configured encryptor has key material the backup is
// treated as encrypted and passphrase unlocks the private key; pass nil for
// unencrypted archives.
func RestoreBackup(cfg *config.Config, passphrase []byte) (*RestoreResult, error) {
	arch, err := archive.NewArchiveFromConfig(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	if arch == nil {
		return nil, fmt.Errorf("no archive configured (archive.type = %q)", cfg.Archive.Type)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	dbPath, err := store.DatabasePath(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}

	return restoreBackup(arch, enc, BackupName(cfg.HostID), dbPath+".restored", passphrase)
}

// restoreBackup fetches one named backup from the archive into outPath.
// Refuses to overwrite an existing output file. An encrypted backup is piped
// from the archive straight into the decryptor with no intermediate buffer.
func restoreBackup(arch archive.Archive, enc encryption.Encryptor, name, outPath string, passphrase []byte) (*RestoreResult, error) {
	version, err := arch.BackupVersion(name)
	if err != nil {
		return nil, fmt.Errorf("checking archived backup version: %w", err)
	}
	if version == 0 {
		return nil, fmt.Errorf("no archived backup found under %s", name)
	}

	encrypted := enc != nil && enc.IsConfigured()

	if err := os.MkdirAll(filepath.Dir(outPath), 0700); err != nil {
		return nil, fmt.Errorf("creating restore directory: %w", err)
	}
	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("restore output already exists: %s", outPath)
		}
		return nil, fmt.Errorf("creating restore output: %w", err)
	}

	fail := func(stage string, cause error) (*RestoreResult, error) {
		out.Close()
		os.Remove(outPath)
		return nil, fmt.Errorf("%s: %w", stage, cause)
	}

	if encrypted {
		if passphrase == nil {
			return fail("unlocking private key", fmt.Errorf("archived backups are encrypted, a passphrase is required"))
		}
		decryptCtx, err := enc.Unlock(string(passphrase))
		if err != nil {
			return fail("unlocking private key", err)
		}

		pr, pw := io.Pipe()
		archErrCh := make(chan error, 1)
		go func() {
			err := arch.GetBackup(name, pw)
			pw.CloseWithError(err)
			archErrCh <- err
		}()

		decryptErr := decryptCtx.Decrypt(pr, out)
		pr.CloseWithError(decryptErr) // unblock goroutine if Decrypt failed early
		<-archErrCh                   // wait for goroutine to finish (no leak)

		if decryptErr != nil {
			return fail("decrypting backup", decryptErr)
		}
	} else {
		if err := arch.GetBackup(name, out); err != nil {
			return fail("downloading backup", err)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("closing restore output: %w", err)
	}

	return &RestoreResult{
		OutputPath: outPath,
		Version:    version,
		Decrypted:  encrypted,
	}, nil
}
