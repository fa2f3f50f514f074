package ingest_test

import (
	"testing"

	"arrivals-go/internal/ingest"
)

func TestCheckBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		used          int
		required      int
		limit         int
		wantCollect   bool
		wantRemaining int
		wantReason    string
	}{
		{
			name:          "fresh day",
			used:          0,
			required:      4,
			limit:         1000,
			wantCollect:   true,
			wantRemaining: 1000,
			wantReason:    ingest.BudgetOK,
		},
		{
			name:          "exactly enough remaining",
			used:          996,
			required:      4,
			limit:         1000,
			wantCollect:   true,
			wantRemaining: 4,
			wantReason:    ingest.BudgetOK,
		},
		{
			name:          "one call short",
			used:          997,
			required:      4,
			limit:         1000,
			wantCollect:   false,
			wantRemaining: 3,
			wantReason:    ingest.BudgetExceeded,
		},
		{
			name:          "two calls short near the cap",
			used:          998,
			required:      4,
			limit:         1000,
			wantCollect:   false,
			wantRemaining: 2,
			wantReason:    ingest.BudgetExceeded,
		},
		{
			name:          "remaining clamps at zero past the limit",
			used:          1200,
			required:      4,
			limit:         1000,
			wantCollect:   false,
			wantRemaining: 0,
			wantReason:    ingest.BudgetExceeded,
		},
		{
			name:          "zero required always passes",
			used:          1200,
			required:      0,
			limit:         1000,
			wantCollect:   true,
			wantRemaining: 0,
			wantReason:    ingest.BudgetOK,
		},
		{
			name:          "small custom limit",
			used:          2,
			required:      4,
			limit:         5,
			wantCollect:   false,
			wantRemaining: 3,
			wantReason:    ingest.BudgetExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ingest.CheckBudget(tt.used, tt.required, tt.limit)
			if got.ShouldCollect != tt.wantCollect {
				t.Errorf("ShouldCollect = %v, want %v", got.ShouldCollect, tt.wantCollect)
			}
			if got.RemainingCalls != tt.wantRemaining {
				t.Errorf("RemainingCalls = %d, want %d", got.RemainingCalls, tt.wantRemaining)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}
