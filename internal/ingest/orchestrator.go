package ingest

import (
	"fmt"
	"time"
)

// RequiredCallsPerSnapshot is the worst-case page count a snapshot can need.
// The budget gate always reserves this much, because the true count is not
// known until the run's probe decides it.
const RequiredCallsPerSnapshot = 4

// Tick outcome reasons, machine-readable.
const (
	ReasonExecuted           = "executed"
	ReasonTimePolicyBlocked  = "time-policy-blocked"
	ReasonIntervalNotElapsed = "interval-not-elapsed"
	ReasonBudgetBlocked      = "budget-blocked"
)

// TickResult is the uniform outcome of one scheduling tick. A gate block is
// a normal non-executed outcome, not an error; Reason says which gate.
type TickResult struct {
	Executed        bool
	Reason          string
	Bucket          TimeBucket
	SnapshotID      string
	LastSnapshotAt  *time.Time
	IntervalSeconds int
	ElapsedSeconds  *float64
	Budget          *BudgetDecision
	Snapshot        *SnapshotResult
}

// Orchestrator is the single entry point for one scheduling tick. It chains
// the time policy, the interval gate against the last snapshot, and the
// budget guard, short-circuiting at the first failing gate, and only then
// mints a snapshot identifier and invokes the runner.
type Orchestrator struct {
	store      Store
	runner     *SnapshotRunner
	policy     *TimePolicy
	logger     Logger
	dailyLimit int
}

// NewOrchestrator creates an orchestrator. dailyLimit falls back to
// DefaultDailyCallLimit when non-positive.
func NewOrchestrator(store Store, runner *SnapshotRunner, policy *TimePolicy, logger Logger, dailyLimit int) *Orchestrator {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyCallLimit
	}
	return &Orchestrator{
		store:      store,
		runner:     runner,
		policy:     policy,
		logger:     logger,
		dailyLimit: dailyLimit,
	}
}

// FormatSnapshotID derives the fixed-width snapshot identifier from a
// trigger instant, precise to the second. It sorts lexically in time order
// and scopes ledger and content uniqueness for the run.
func FormatSnapshotID(t time.Time) string {
	return t.Format("20060102_150405")
}

// RunOnce performs one tick at the injected instant now. ranges, when
// non-nil, bypasses the runner's dynamic paging decision. The error return
// covers contract violations and store failures only; blocked gates come
// back as a structured result.
func (o *Orchestrator) RunOnce(now time.Time, ranges []PageRange) (*TickResult, error) {
	decision, err := o.policy.Decide(now)
	if err != nil {
		return nil, err
	}

	result := &TickResult{
		Reason:          ReasonTimePolicyBlocked,
		Bucket:          decision.Bucket,
		IntervalSeconds: decision.IntervalSeconds,
	}

	if !decision.ShouldCollect {
		o.logger.Info("tick blocked", "reason", result.Reason,
			"bucket", decision.Bucket, "next_window_seconds", decision.IntervalSeconds)
		return result, nil
	}

	local := now.In(o.policy.Location())

	last, ok, err := o.store.LastSnapshotAt()
	if err != nil {
		return nil, fmt.Errorf("looking up last snapshot: %w", err)
	}
	if ok {
		lastLocal := last.In(o.policy.Location())
		elapsed := local.Sub(lastLocal).Seconds()
		result.LastSnapshotAt = &lastLocal
		result.ElapsedSeconds = &elapsed

		if elapsed < float64(decision.IntervalSeconds) {
			result.Reason = ReasonIntervalNotElapsed
			o.logger.Info("tick blocked", "reason", result.Reason,
				"elapsed_seconds", elapsed, "interval_seconds", decision.IntervalSeconds,
				"last_snapshot_at", lastLocal)
			return result, nil
		}
	}

	used, err := o.store.CountSuccessfulCalls(local.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("counting today's calls: %w", err)
	}
	budget := CheckBudget(used, RequiredCallsPerSnapshot, o.dailyLimit)
	result.Budget = &budget
	if !budget.ShouldCollect {
		result.Reason = ReasonBudgetBlocked
		o.logger.Info("tick blocked", "reason", result.Reason,
			"used_calls", used, "remaining_calls", budget.RemainingCalls,
			"required_calls", RequiredCallsPerSnapshot)
		return result, nil
	}

	snapshotID := FormatSnapshotID(local)
	snapshot, err := o.runner.Run(snapshotID, ranges)
	if err != nil {
		return nil, fmt.Errorf("running snapshot %s: %w", snapshotID, err)
	}

	result.Executed = true
	result.Reason = ReasonExecuted
	result.SnapshotID = snapshotID
	result.Snapshot = snapshot
	return result, nil
}
