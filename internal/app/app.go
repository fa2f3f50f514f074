package app

import (
	"fmt"
	"os"
	"time"

	"arrivals-go/internal/archive"
	"arrivals-go/internal/config"
	"arrivals-go/internal/encryption"
	"arrivals-go/internal/ingest"
	"arrivals-go/internal/provider"
	"arrivals-go/internal/store"
)

// App is the application layer between the CLI and the ingest engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string arguments, and manages the DB lifecycle on Close.
type App struct {
	cfg          *config.Config
	store        *store.SQLiteStore
	archive      archive.Archive
	encryptor    encryption.Encryptor
	policy       *ingest.TimePolicy
	orchestrator *ingest.Orchestrator
	clock        ingest.Clock
	op           *IngestOperation
	logFile      *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Run", "History").
// apiKey may be empty for commands that never reach the remote API.
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation, apiKey string) (*App, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	st, err := store.NewStoreFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	// A fresh database has no schema version yet; bring it up instead of
	// refusing to start.
	if err := st.CheckMigrations(); err != nil {
		if migErr := st.MigrateUp(); migErr != nil {
			st.Close()
			return nil, fmt.Errorf("migrating database: %w", migErr)
		}
	}

	arch, err := archive.NewArchiveFromConfig(cfg.Archive)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	// Check the local DB version against the archived copy.
	if arch != nil {
		remoteVersion, err := arch.BackupVersion(BackupName(cfg.HostID))
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking archived backup version: %w", err)
		}

		localMax, err := st.MaxOperationID()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking local operation version: %w", err)
		}

		if remoteVersion > localMax {
			st.Close()
			return nil, fmt.Errorf("local database is behind archive (local=%d, remote=%d): run 'arv restore' or re-initialize", localMax, remoteVersion)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	clock := ingest.RealClock{}

	policy, err := ingest.NewTimePolicy(loc)
	if err != nil {
		logFile.Close()
		st.Close()
		return nil, fmt.Errorf("creating time policy: %w", err)
	}

	client := provider.NewSeoulClient(apiKey, cfg.API.BaseURL, cfg.API.Service)
	runner := ingest.NewSnapshotRunner(st, client, clock, adapter, loc)
	orch := ingest.NewOrchestrator(st, runner, policy, adapter, cfg.Ingest.DailyCallLimit)

	return &App{
		cfg:          cfg,
		store:        st,
		archive:      arch,
		encryptor:    enc,
		policy:       policy,
		orchestrator: orch,
		clock:        clock,
		op:           NewIngestOperation(operation, ""),
		logFile:      logFile,
	}, nil
}

// persistOperation saves the ingest operation to the database, giving it an
// auto-increment ID. This should only be called for DB-mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	rec, err := a.store.CreateOperation(a.clock.Now(), a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting ingest operation: %w", err)
	}
	a.op.ID = rec.ID
	return nil
}

// RunOnce performs one scheduling tick. rawRanges, when non-empty, overrides
// the dynamic paging decision with fixed page ranges; otherwise the config's
// default_ranges applies, and failing that the probe-and-decide path runs.
func (a *App) RunOnce(rawRanges string) (*ingest.TickResult, error) {
	if rawRanges == "" {
		rawRanges = a.cfg.Ingest.DefaultRanges
	}

	var ranges []ingest.PageRange
	if rawRanges != "" {
		var err error
		ranges, err = ingest.ParseRanges(rawRanges)
		if err != nil {
			return nil, fmt.Errorf("parsing ranges: %w", err)
		}
	}

	a.op.Parameters = rawRanges
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	result, err := a.orchestrator.RunOnce(a.clock.Now(), ranges)
	if err != nil {
		a.op.Status = "error"
		return nil, err
	}

	// The operation record keeps the tick's outcome reason so the history
	// view shows why a tick did or did not collect.
	a.op.Status = result.Reason
	if result.Snapshot != nil && result.Snapshot.Status == ingest.StatusError {
		a.op.Status = "error"
	}
	return result, nil
}

// History returns the most recent ingest operations.
func (a *App) History(limit int) ([]*ingest.OperationRecord, error) {
	return a.store.ListOperations(limit)
}

// PolicyNow evaluates the time policy at the current instant.
func (a *App) PolicyNow() (*ingest.PolicyDecision, error) {
	decision, err := a.policy.Decide(a.clock.Now())
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

// BudgetNow evaluates the budget guard at the current instant. It returns
// the decision plus today's used call count.
func (a *App) BudgetNow() (*ingest.BudgetDecision, int, error) {
	local := a.clock.Now().In(a.policy.Location())
	used, err := a.store.CountSuccessfulCalls(local.Format("2006-01-02"))
	if err != nil {
		return nil, 0, fmt.Errorf("counting today's calls: %w", err)
	}
	limit := a.cfg.Ingest.DailyCallLimit
	if limit <= 0 {
		limit = ingest.DefaultDailyCallLimit
	}
	budget := ingest.CheckBudget(used, ingest.RequiredCallsPerSnapshot, limit)
	return &budget, used, nil
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, backs up the DB,
// and uploads it to the archive. For non-persisted operations: just closes
// the database.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		// Finalize the operation record
		if err := a.store.FinishOperation(a.op.ID, a.clock.Now(), a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing ingest operation: %w", err)
		}

		// Snapshot the DB to a temp file
		tmpFile, err := os.CreateTemp("", "arv-db-backup-*.db")
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("creating temp file for db backup: %w", err)
			}
		}

		var tmpPath string
		if tmpFile != nil {
			tmpPath = tmpFile.Name()
			tmpFile.Close()

			if err := a.store.BackupTo(tmpPath); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("backing up database: %w", err)
				}
				tmpPath = "" // skip archive upload
			}
		}

		// Close the database
		if err := a.store.Close(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("closing database: %w", err)
			}
		}

		// Upload DB snapshot to the archive with version = operation ID
		if tmpPath != "" && a.archive != nil {
			if err := a.uploadBackup(tmpPath, a.op.ID); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		// Clean up temp file
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	} else {
		// Non-mutating operation: just close the database, no upload
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadBackup uploads the temp DB file to the archive, encrypting it first
// when an encryptor is configured.
func (a *App) uploadBackup(path string, version int64) error {
	uploadPath := path

	if a.encryptor != nil && a.encryptor.IsConfigured() {
		encPath, err := a.encryptBackup(path)
		if err != nil {
			return err
		}
		defer os.Remove(encPath)
		uploadPath = encPath
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.archive.PutBackup(BackupName(a.cfg.HostID), f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading backup to archive: %w", err)
	}

	return nil
}

// encryptBackup encrypts the given file to a sibling temp file and returns
// the encrypted file's path.
func (a *App) encryptBackup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening db backup for encryption: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "arv-db-backup-*.db.age")
	if err != nil {
		return "", fmt.Errorf("creating temp file for encrypted backup: %w", err)
	}
	encPath := dst.Name()

	if err := a.encryptor.Encrypt(src, dst); err != nil {
		dst.Close()
		os.Remove(encPath)
		return "", fmt.Errorf("encrypting db backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(encPath)
		return "", fmt.Errorf("closing encrypted backup: %w", err)
	}

	return encPath, nil
}

// BackupName is the archive object name for a host's DB backup.
func BackupName(hostID string) string {
	return hostID + ".db"
}
