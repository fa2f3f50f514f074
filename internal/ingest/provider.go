package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// PageRange is one contiguous, inclusive index interval requested from the
// remote source in a single call.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PageData is the parsed result of fetching one page from the remote API.
type PageData struct {
	ResultCode    string
	ResultMessage string
	// TotalCount is the reported total row count across all pages, when the
	// response carried one. nil when absent.
	TotalCount *int
	Rows       []map[string]string
}

// Provider is the fetch capability for one remote source. A transport
// failure, a non-success HTTP status, or an API-level error code are all
// surfaced as a single error; the core does not interpret sub-codes.
type Provider interface {
	FetchPage(start, end int) (*PageData, error)
}

// ParseRanges parses a comma-separated range list such as
// "0-999,1000-1999,2000-2999" into page ranges.
func ParseRanges(s string) ([]PageRange, error) {
	var ranges []PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		start, end, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("invalid range %q: want start-end", part)
		}
		s0, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			return nil, fmt.Errorf("invalid range start %q: %w", start, err)
		}
		e0, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			return nil, fmt.Errorf("invalid range end %q: %w", end, err)
		}
		ranges = append(ranges, PageRange{Start: s0, End: e0})
	}
	return ranges, nil
}
