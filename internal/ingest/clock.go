package ingest

import "time"

// Clock abstracts time retrieval so decision logic is deterministic in tests.
// The core never reads the system clock directly.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
