package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arrivals-go/internal/ingest"
	"arrivals-go/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the ingest.Store interface using SQLite.
// Transaction scope is always one page: the runner opens a transaction,
// writes the page's ledger entry and content rows through it, and commits or
// rolls back the pair together.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ ingest.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens a SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:   db,
		path: path,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every caller sees the same schema and data.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Begin opens a page-scoped transaction.
func (s *SQLiteStore) Begin() (ingest.StoreTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting page transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// LastSnapshotAt returns the collected-at instant of the most recent raw
// row, or ok=false when nothing has been collected yet.
func (s *SQLiteStore) LastSnapshotAt() (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRow(
		`SELECT collected_at FROM arrival_raw ORDER BY collected_at DESC LIMIT 1`,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying last snapshot: %w", err)
	}
	return at, true, nil
}

// CountSuccessfulCalls returns the number of successful ledger entries for
// one calendar date (YYYY-MM-DD).
func (s *SQLiteStore) CountSuccessfulCalls(callDate string) (int, error) {
	return s.CountCalls(callDate, ingest.CallSuccess)
}

// CountCalls returns the number of ledger entries for one calendar date
// (YYYY-MM-DD) with the given status.
func (s *SQLiteStore) CountCalls(callDate, status string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM api_call_log WHERE call_date = ? AND status = ?`,
		callDate, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s calls: %w", status, err)
	}
	return n, nil
}

// CreateOperation persists the start of an orchestrator tick.
func (s *SQLiteStore) CreateOperation(startedAt time.Time, operation, parameters string) (*ingest.OperationRecord, error) {
	res, err := s.db.Exec(
		`INSERT INTO ingest_operations (started_at, operation, parameters, status) VALUES (?, ?, ?, 'running')`,
		startedAt, operation, parameters,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &ingest.OperationRecord{
		ID:         id,
		StartedAt:  startedAt,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
	}, nil
}

// FinishOperation records a tick's outcome reason and finish time.
func (s *SQLiteStore) FinishOperation(id int64, finishedAt time.Time, status string) error {
	_, err := s.db.Exec(
		`UPDATE ingest_operations SET finished_at = ?, status = ? WHERE id = ?`,
		finishedAt, status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

// ListOperations returns the most recent ticks, newest first.
func (s *SQLiteStore) ListOperations(limit int) ([]*ingest.OperationRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, COALESCE(finished_at, started_at), operation, parameters, status
		 FROM ingest_operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*ingest.OperationRecord
	for rows.Next() {
		var op ingest.OperationRecord
		if err := rows.Scan(&op.ID, &op.StartedAt, &op.FinishedAt, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// MaxOperationID returns the highest operation id, or 0 when none exist.
func (s *SQLiteStore) MaxOperationID() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM ingest_operations`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("getting max operation id: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp brings the schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// sqliteTx is one page-scoped transaction.
type sqliteTx struct {
	tx *sql.Tx
}

var _ ingest.StoreTx = (*sqliteTx)(nil)

// RecordCall upserts a ledger entry by (snapshot_id, page_start, page_end).
// Re-recording the same page overwrites status, called-at and call date
// instead of duplicating.
func (t *sqliteTx) RecordCall(entry ingest.CallLogEntry) error {
	_, err := t.tx.Exec(
		`INSERT INTO api_call_log (call_date, snapshot_id, page_start, page_end, called_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (snapshot_id, page_start, page_end) DO UPDATE SET
		   status = excluded.status,
		   called_at = excluded.called_at,
		   call_date = excluded.call_date`,
		entry.CallDate, entry.SnapshotID, entry.PageStart, entry.PageEnd, entry.CalledAt, entry.Status,
	)
	if err != nil {
		return fmt.Errorf("recording call %s %d-%d: %w", entry.SnapshotID, entry.PageStart, entry.PageEnd, err)
	}
	return nil
}

// InsertRows bulk-inserts a page's rows keyed by content signature. A row
// whose (snapshot, page range, payload hash) already exists is skipped and
// counted as a duplicate.
func (t *sqliteTx) InsertRows(snapshotID string, collectedAt time.Time, pageStart, pageEnd int, rows []map[string]string) (ingest.PageIngest, error) {
	result := ingest.PageIngest{AttemptedRows: len(rows)}
	if len(rows) == 0 {
		return result, nil
	}

	stmt, err := t.tx.Prepare(
		`INSERT OR IGNORE INTO arrival_raw
		   (id, snapshot_id, collected_at, page_start, page_end, raw_payload, payload_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return result, fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		payload, err := ingest.EncodeRow(row)
		if err != nil {
			return result, fmt.Errorf("encoding row: %w", err)
		}
		hash := ingest.HashEncoded(payload)

		res, err := stmt.Exec(uuid.New().String(), snapshotID, collectedAt, pageStart, pageEnd, string(payload), hash)
		if err != nil {
			return result, fmt.Errorf("inserting row: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("checking row insert: %w", err)
		}
		result.InsertedRows += int(affected)
	}

	result.SkippedDuplicates = result.AttemptedRows - result.InsertedRows
	return result, nil
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing page transaction: %w", err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}
