package ingest_test

import (
	"testing"

	"arrivals-go/internal/ingest"
)

func TestParseRanges(t *testing.T) {
	t.Parallel()

	t.Run("single range", func(t *testing.T) {
		got, err := ingest.ParseRanges("0-999")
		if err != nil {
			t.Fatalf("ParseRanges() error = %v", err)
		}
		if len(got) != 1 || got[0] != (ingest.PageRange{Start: 0, End: 999}) {
			t.Errorf("ParseRanges() = %v, want [{0 999}]", got)
		}
	})

	t.Run("multiple ranges with spaces", func(t *testing.T) {
		got, err := ingest.ParseRanges("1000-1999, 2000-2999")
		if err != nil {
			t.Fatalf("ParseRanges() error = %v", err)
		}
		want := []ingest.PageRange{{Start: 1000, End: 1999}, {Start: 2000, End: 2999}}
		if len(got) != len(want) {
			t.Fatalf("ParseRanges() returned %d ranges, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("range[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("missing separator", func(t *testing.T) {
		if _, err := ingest.ParseRanges("1000"); err == nil {
			t.Fatal("ParseRanges() error = nil, want error")
		}
	})

	t.Run("non-numeric bound", func(t *testing.T) {
		if _, err := ingest.ParseRanges("a-999"); err == nil {
			t.Fatal("ParseRanges() error = nil, want error")
		}
	})
}

func TestPageRange_String(t *testing.T) {
	t.Parallel()

	r := ingest.PageRange{Start: 2000, End: 2999}
	if got := r.String(); got != "2000-2999" {
		t.Errorf("String() = %q, want %q", got, "2000-2999")
	}
}
