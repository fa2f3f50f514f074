package ingest

import (
	"fmt"
	"time"
)

// TimeBucket names the interval of the day governing collection cadence.
type TimeBucket string

const (
	BucketMorning TimeBucket = "morning"
	BucketEvening TimeBucket = "evening"
	BucketNormal  TimeBucket = "normal"
	BucketNight   TimeBucket = "night"
)

// Suggested collection intervals per bucket. These are advisory spacing
// between snapshots, not sleep durations; the outer scheduler decides the
// actual tick cadence.
const (
	CommuteIntervalSeconds = 120
	NormalIntervalSeconds  = 900
)

// Bucket boundaries as seconds since midnight, inclusive on both ends.
const (
	nightStart   = 30 * 60            // 00:30:00
	nightEnd     = 5 * 3600           // 05:00:00
	morningStart = 7 * 3600           // 07:00:00
	morningEnd   = 9*3600 + 30*60     // 09:30:00
	eveningStart = 17*3600 + 30*60    // 17:30:00
	eveningEnd   = 20 * 3600          // 20:00:00
)

// PolicyDecision is the outcome of the time-of-day collection policy.
// For the night bucket, IntervalSeconds reports the seconds until the next
// eligible instant (05:00:01) instead of a spacing interval.
type PolicyDecision struct {
	ShouldCollect   bool
	IntervalSeconds int
	Bucket          TimeBucket
}

// TimePolicy decides whether collection should run at a given instant, and
// how far apart snapshots should be spaced, based on the civil time of day
// in a fixed timezone.
type TimePolicy struct {
	loc *time.Location
}

// NewTimePolicy creates a TimePolicy evaluating instants in loc.
// A nil location is a caller contract violation.
func NewTimePolicy(loc *time.Location) (*TimePolicy, error) {
	if loc == nil {
		return nil, fmt.Errorf("time policy requires an explicit location")
	}
	return &TimePolicy{loc: loc}, nil
}

// Location returns the civil timezone the policy evaluates in.
func (p *TimePolicy) Location() *time.Location { return p.loc }

// Decide evaluates the collection policy at now. The zero time is a caller
// contract violation and is rejected rather than silently defaulted.
//
// Buckets, inclusive on both ends, checked night first:
//   - night   00:30:00-05:00:00: no collection; interval is seconds until the
//     next 05:00:01, rolling to the following day when already past it.
//   - morning 07:00:00-09:30:00: collect every 120s.
//   - evening 17:30:00-20:00:00: collect every 120s.
//   - normal  (everything else): collect every 900s.
func (p *TimePolicy) Decide(now time.Time) (PolicyDecision, error) {
	if now.IsZero() {
		return PolicyDecision{}, fmt.Errorf("time policy requires a real instant, got the zero time")
	}

	local := now.In(p.loc)
	daySeconds := local.Hour()*3600 + local.Minute()*60 + local.Second()

	if daySeconds >= nightStart && daySeconds <= nightEnd {
		next := time.Date(local.Year(), local.Month(), local.Day(), 5, 0, 1, 0, p.loc)
		if !local.Before(next) {
			next = next.AddDate(0, 0, 1)
		}
		return PolicyDecision{
			ShouldCollect:   false,
			IntervalSeconds: int(next.Sub(local).Seconds()),
			Bucket:          BucketNight,
		}, nil
	}

	if daySeconds >= morningStart && daySeconds <= morningEnd {
		return PolicyDecision{ShouldCollect: true, IntervalSeconds: CommuteIntervalSeconds, Bucket: BucketMorning}, nil
	}

	if daySeconds >= eveningStart && daySeconds <= eveningEnd {
		return PolicyDecision{ShouldCollect: true, IntervalSeconds: CommuteIntervalSeconds, Bucket: BucketEvening}, nil
	}

	return PolicyDecision{ShouldCollect: true, IntervalSeconds: NormalIntervalSeconds, Bucket: BucketNormal}, nil
}
