package ingest_test

import (
	"testing"
	"time"

	"arrivals-go/internal/ingest"
)

var kst = time.FixedZone("KST", 9*3600)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 15, hour, min, sec, 0, kst)
}

func TestTimePolicy_Decide_buckets(t *testing.T) {
	t.Parallel()

	policy, err := ingest.NewTimePolicy(kst)
	if err != nil {
		t.Fatalf("NewTimePolicy() error = %v", err)
	}

	tests := []struct {
		name         string
		now          time.Time
		wantCollect  bool
		wantInterval int
		wantBucket   ingest.TimeBucket
	}{
		{
			name:         "just before night window",
			now:          at(0, 29, 59),
			wantCollect:  true,
			wantInterval: ingest.NormalIntervalSeconds,
			wantBucket:   ingest.BucketNormal,
		},
		{
			name:         "night window start is inclusive",
			now:          at(0, 30, 0),
			wantCollect:  false,
			wantInterval: 4*3600 + 30*60 + 1, // until 05:00:01
			wantBucket:   ingest.BucketNight,
		},
		{
			name:         "deep night",
			now:          at(2, 0, 0),
			wantCollect:  false,
			wantInterval: 3*3600 + 1,
			wantBucket:   ingest.BucketNight,
		},
		{
			name:         "night window end is inclusive",
			now:          at(5, 0, 0),
			wantCollect:  false,
			wantInterval: 1,
			wantBucket:   ingest.BucketNight,
		},
		{
			name:         "first eligible second after night",
			now:          at(5, 0, 1),
			wantCollect:  true,
			wantInterval: ingest.NormalIntervalSeconds,
			wantBucket:   ingest.BucketNormal,
		},
		{
			name:         "just before morning commute",
			now:          at(6, 59, 59),
			wantCollect:  true,
			wantInterval: ingest.NormalIntervalSeconds,
			wantBucket:   ingest.BucketNormal,
		},
		{
			name:         "morning commute start is inclusive",
			now:          at(7, 0, 0),
			wantCollect:  true,
			wantInterval: ingest.CommuteIntervalSeconds,
			wantBucket:   ingest.BucketMorning,
		},
		{
			name:         "morning commute end is inclusive",
			now:          at(9, 30, 0),
			wantCollect:  true,
			wantInterval: ingest.CommuteIntervalSeconds,
			wantBucket:   ingest.BucketMorning,
		},
		{
			name:         "just after morning commute",
			now:          at(9, 30, 1),
			wantCollect:  true,
			wantInterval: ingest.NormalIntervalSeconds,
			wantBucket:   ingest.BucketNormal,
		},
		{
			name:         "evening commute start is inclusive",
			now:          at(17, 30, 0),
			wantCollect:  true,
			wantInterval: ingest.CommuteIntervalSeconds,
			wantBucket:   ingest.BucketEvening,
		},
		{
			name:         "evening commute end is inclusive",
			now:          at(20, 0, 0),
			wantCollect:  true,
			wantInterval: ingest.CommuteIntervalSeconds,
			wantBucket:   ingest.BucketEvening,
		},
		{
			name:         "just after evening commute",
			now:          at(20, 0, 1),
			wantCollect:  true,
			wantInterval: ingest.NormalIntervalSeconds,
			wantBucket:   ingest.BucketNormal,
		},
		{
			name:         "midnight is normal",
			now:          at(0, 0, 0),
			wantCollect:  true,
			wantInterval: ingest.NormalIntervalSeconds,
			wantBucket:   ingest.BucketNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Decide(tt.now)
			if err != nil {
				t.Fatalf("Decide(%v) error = %v", tt.now, err)
			}
			if got.ShouldCollect != tt.wantCollect {
				t.Errorf("ShouldCollect = %v, want %v", got.ShouldCollect, tt.wantCollect)
			}
			if got.IntervalSeconds != tt.wantInterval {
				t.Errorf("IntervalSeconds = %d, want %d", got.IntervalSeconds, tt.wantInterval)
			}
			if got.Bucket != tt.wantBucket {
				t.Errorf("Bucket = %q, want %q", got.Bucket, tt.wantBucket)
			}
		})
	}
}

func TestTimePolicy_Decide_convertsForeignZones(t *testing.T) {
	t.Parallel()

	policy, err := ingest.NewTimePolicy(kst)
	if err != nil {
		t.Fatalf("NewTimePolicy() error = %v", err)
	}

	// 23:00 UTC is 08:00 the next day in KST, inside the morning commute.
	now := time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC)
	got, err := policy.Decide(now)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if got.Bucket != ingest.BucketMorning {
		t.Errorf("Bucket = %q, want %q", got.Bucket, ingest.BucketMorning)
	}
}

func TestNewTimePolicy_rejectsNilLocation(t *testing.T) {
	t.Parallel()

	if _, err := ingest.NewTimePolicy(nil); err == nil {
		t.Fatal("NewTimePolicy(nil) error = nil, want error")
	}
}

func TestTimePolicy_Decide_rejectsZeroTime(t *testing.T) {
	t.Parallel()

	policy, err := ingest.NewTimePolicy(kst)
	if err != nil {
		t.Fatalf("NewTimePolicy() error = %v", err)
	}
	if _, err := policy.Decide(time.Time{}); err == nil {
		t.Fatal("Decide(zero) error = nil, want error")
	}
}
