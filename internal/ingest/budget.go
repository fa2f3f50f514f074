package ingest

// DefaultDailyCallLimit is the per-day cap on remote API calls.
const DefaultDailyCallLimit = 1000

// Budget decision reasons.
const (
	BudgetOK       = "ok"
	BudgetExceeded = "exceeded"
)

// BudgetDecision is the outcome of the daily call-budget guard.
type BudgetDecision struct {
	ShouldCollect  bool
	RemainingCalls int
	Reason         string
}

// CheckBudget decides whether today's remaining call budget covers the
// required number of calls. Pure: the caller supplies today's usage as an
// already-resolved fact (from the call ledger, scoped to one calendar date),
// so day-boundary resets happen naturally in the ledger query.
//
// remaining is clamped at zero, so a day that has already overrun the limit
// still reports remaining=0 rather than a negative count. required=0 always
// passes, even then.
func CheckBudget(usedCallsToday, requiredCalls, dailyLimit int) BudgetDecision {
	remaining := dailyLimit - usedCallsToday
	if remaining < 0 {
		remaining = 0
	}

	if remaining >= requiredCalls {
		return BudgetDecision{ShouldCollect: true, RemainingCalls: remaining, Reason: BudgetOK}
	}
	return BudgetDecision{ShouldCollect: false, RemainingCalls: remaining, Reason: BudgetExceeded}
}
