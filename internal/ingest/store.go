package ingest

import "time"

// Call ledger statuses.
const (
	CallSuccess = "success"
	CallError   = "error"
)

// CallLogEntry records one attempted remote call. Entries are uniquely
// identified by (SnapshotID, PageStart, PageEnd); recording the same key again
// overwrites status and called-at instead of duplicating. CallDate is the
// calendar date of CalledAt in the collection timezone and is the unit of
// budget accounting.
type CallLogEntry struct {
	CallDate   string // YYYY-MM-DD
	SnapshotID string
	PageStart  int
	PageEnd    int
	CalledAt   time.Time
	Status     string // "success" or "error"
}

// PageIngest summarizes one page's bulk insert. SkippedDuplicates is the
// delta between attempted and actually-inserted rows; a storage-level unique
// conflict on (snapshot, page range, content hash) is a harmless duplicate,
// never an error.
type PageIngest struct {
	AttemptedRows     int
	InsertedRows      int
	SkippedDuplicates int
}

// OperationRecord tracks one orchestrator tick for the history view.
type OperationRecord struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Operation  string
	Parameters string
	Status     string // outcome reason, e.g. "executed" or a gate-block reason
}

// StoreTx is one page-scoped transaction. The runner sequences a page's
// ledger entry and content rows inside a single StoreTx so they commit or
// roll back together.
type StoreTx interface {
	// RecordCall upserts a call ledger entry by its natural key.
	RecordCall(entry CallLogEntry) error

	// InsertRows bulk-inserts a page's records keyed by content signature.
	// Conflicting rows are counted as duplicates and skipped.
	InsertRows(snapshotID string, collectedAt time.Time, pageStart, pageEnd int, rows []map[string]string) (PageIngest, error)

	Commit() error
	Rollback() error
}

// Store is the durable store boundary for the ingestion core. Transaction
// scope is always one page; cross-page state lives in the queries below.
type Store interface {
	// Begin opens a page-scoped transaction.
	Begin() (StoreTx, error)

	// LastSnapshotAt returns the instant of the most recent prior snapshot,
	// or ok=false when none exists.
	LastSnapshotAt() (at time.Time, ok bool, err error)

	// CountSuccessfulCalls returns the number of ledger entries with the
	// given call date (YYYY-MM-DD) and status success. This is the sole
	// authorized input to the budget guard's used-calls figure.
	CountSuccessfulCalls(callDate string) (int, error)

	// CreateOperation persists the start of an orchestrator tick.
	CreateOperation(startedAt time.Time, operation, parameters string) (*OperationRecord, error)

	// FinishOperation records a tick's outcome reason and finish time.
	FinishOperation(id int64, finishedAt time.Time, status string) error

	// ListOperations returns the most recent ticks, newest first.
	ListOperations(limit int) ([]*OperationRecord, error)

	// MaxOperationID returns the highest operation id, or 0 when none exist.
	// Used as the version counter for archived database backups.
	MaxOperationID() (int64, error)

	Close() error
}
