package ingest

import (
	"fmt"
	"time"
)

// Snapshot and page statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
)

// The dynamic path probes the first page alone, then reads the reported
// total row count to decide between three and four calls in total. The
// decision is made exactly once per snapshot and never revisited, even if a
// later page reports a different total.
const (
	probePageStart = 0
	probePageEnd   = 999

	fourPageThreshold = 3000
)

// Ranges fetched after the probe, in order. The three-call decision takes the
// first two; the four-call decision takes all three. The probe range is never
// re-fetched.
var followUpRanges = []PageRange{
	{Start: 1000, End: 1999},
	{Start: 2000, End: 2999},
	{Start: 3000, End: 3999},
}

// PageOutcome is the result of one page's fetch/log/ingest/commit sequence.
type PageOutcome struct {
	Start             int
	End               int
	Status            string // "ok" or "error"
	AttemptedRows     int
	InsertedRows      int
	SkippedDuplicates int
	Err               string // empty unless Status is "error"
}

// SnapshotResult aggregates one snapshot run. TotalCount and
// DecidedPageCount are set only on the dynamic path; when ranges were
// supplied externally no paging policy judgment occurred and both stay nil.
type SnapshotResult struct {
	SnapshotID       string
	Ranges           []PageRange // ranges fetched after the probe (dynamic) or as supplied (fixed)
	Pages            []PageOutcome
	AttemptedTotal   int
	InsertedTotal    int
	DuplicatesTotal  int
	ErrorsTotal      int
	Status           string // "ok", "partial" or "error"
	TotalCount       *int
	DecidedPageCount *int
}

// SnapshotRunner executes one snapshot: a variable number of paginated
// fetches with per-page transactional atomicity. A single page's failure is
// recorded and skipped; it never aborts the run.
type SnapshotRunner struct {
	store    Store
	provider Provider
	clock    Clock
	logger   Logger
	loc      *time.Location
}

// NewSnapshotRunner creates a runner. loc is the civil timezone used to
// derive ledger call dates.
func NewSnapshotRunner(store Store, provider Provider, clock Clock, logger Logger, loc *time.Location) *SnapshotRunner {
	return &SnapshotRunner{
		store:    store,
		provider: provider,
		clock:    clock,
		logger:   logger,
		loc:      loc,
	}
}

// Run executes one snapshot under snapshotID.
//
// When ranges is nil the page count is decided dynamically: the probe page
// is fetched first and in isolation, and on success the reported total row
// count picks three or four calls in total. When ranges is supplied every
// given range is fetched in order with no probe and no paging decision.
//
// The returned result always carries the complete per-page breakdown plus
// the aggregate, regardless of how many pages failed. The error return is
// reserved for losing the store entirely.
func (r *SnapshotRunner) Run(snapshotID string, ranges []PageRange) (*SnapshotResult, error) {
	// One collected-at instant per snapshot, shared by every page.
	collectedAt := r.clock.Now()

	result := &SnapshotResult{
		SnapshotID: snapshotID,
		Status:     StatusOK,
	}

	var remaining []PageRange
	if ranges == nil {
		probe := PageRange{Start: probePageStart, End: probePageEnd}
		outcome, page := r.runPage(snapshotID, collectedAt, probe)
		result.Pages = append(result.Pages, outcome)

		// Paging decision: made once, from the probe response alone.
		// Probe failure falls back to the three-call default.
		decided := 3
		if page != nil && page.TotalCount != nil {
			result.TotalCount = page.TotalCount
			if *page.TotalCount > fourPageThreshold {
				decided = 4
			}
		}
		result.DecidedPageCount = &decided

		remaining = followUpRanges[:decided-1]
		result.Ranges = remaining
	} else {
		remaining = ranges
		result.Ranges = ranges
	}

	lastIdx := len(remaining) - 1
	for i, rng := range remaining {
		outcome, _ := r.runPage(snapshotID, collectedAt, rng)
		if outcome.Status == StatusError && i == lastIdx {
			// The highest-numbered page is never fatal to the snapshot; the
			// earlier pages' results stand on their own.
			r.logger.Warn("final page failed, keeping earlier pages",
				"snapshot_id", snapshotID, "range", rng.String(), "error", outcome.Err)
		}
		result.Pages = append(result.Pages, outcome)
	}

	successPages := 0
	for _, p := range result.Pages {
		result.AttemptedTotal += p.AttemptedRows
		result.InsertedTotal += p.InsertedRows
		result.DuplicatesTotal += p.SkippedDuplicates
		if p.Status == StatusError {
			result.ErrorsTotal++
		} else {
			successPages++
		}
	}

	switch {
	case result.ErrorsTotal == 0:
		result.Status = StatusOK
	case result.ErrorsTotal == len(result.Pages):
		result.Status = StatusError
	default:
		result.Status = StatusPartial
	}

	args := []any{
		"snapshot_id", snapshotID,
		"status", result.Status,
		"attempted_pages", len(result.Pages),
		"success_pages", successPages,
		"inserted_rows", result.InsertedTotal,
		"duplicate_rows", result.DuplicatesTotal,
	}
	if result.DecidedPageCount != nil {
		args = append(args, "decided_page_count", *result.DecidedPageCount)
		if result.TotalCount != nil {
			args = append(args, "total_count", *result.TotalCount)
		}
	}
	r.logger.Info("snapshot complete", args...)

	return result, nil
}

// runPage performs one page's full sequence: fetch, ledger entry, row
// ingest, commit. The ledger entry and content rows share one transaction so
// they commit or roll back together. On any failure the page's writes are
// rolled back and an error ledger entry is recorded best-effort in its own
// transaction.
func (r *SnapshotRunner) runPage(snapshotID string, collectedAt time.Time, rng PageRange) (PageOutcome, *PageData) {
	outcome := PageOutcome{Start: rng.Start, End: rng.End, Status: StatusOK}

	page, err := r.provider.FetchPage(rng.Start, rng.End)
	calledAt := r.clock.Now()
	if err != nil {
		r.recordFailedCall(snapshotID, rng, calledAt)
		outcome.Status = StatusError
		outcome.Err = err.Error()
		return outcome, nil
	}

	fail := func(stage string, cause error) (PageOutcome, *PageData) {
		r.recordFailedCall(snapshotID, rng, calledAt)
		outcome.Status = StatusError
		outcome.Err = fmt.Sprintf("%s: %v", stage, cause)
		return outcome, page
	}

	tx, err := r.store.Begin()
	if err != nil {
		return fail("beginning page transaction", err)
	}

	err = tx.RecordCall(CallLogEntry{
		CallDate:   r.callDate(calledAt),
		SnapshotID: snapshotID,
		PageStart:  rng.Start,
		PageEnd:    rng.End,
		CalledAt:   calledAt,
		Status:     CallSuccess,
	})
	if err != nil {
		tx.Rollback()
		return fail("recording call", err)
	}

	ing, err := tx.InsertRows(snapshotID, collectedAt, rng.Start, rng.End, page.Rows)
	if err != nil {
		tx.Rollback()
		return fail("ingesting rows", err)
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return fail("committing page", err)
	}

	outcome.AttemptedRows = len(page.Rows)
	outcome.InsertedRows = ing.InsertedRows
	outcome.SkippedDuplicates = ing.SkippedDuplicates
	return outcome, page
}

// recordFailedCall writes an error ledger entry in its own short
// transaction. This runs after the page's writes were rolled back, so the
// error entry survives; its own failure is swallowed so the original page
// failure is not masked.
func (r *SnapshotRunner) recordFailedCall(snapshotID string, rng PageRange, calledAt time.Time) {
	tx, err := r.store.Begin()
	if err != nil {
		return
	}
	err = tx.RecordCall(CallLogEntry{
		CallDate:   r.callDate(calledAt),
		SnapshotID: snapshotID,
		PageStart:  rng.Start,
		PageEnd:    rng.End,
		CalledAt:   calledAt,
		Status:     CallError,
	})
	if err != nil {
		tx.Rollback()
		return
	}
	tx.Commit()
}

func (r *SnapshotRunner) callDate(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02")
}
