package testutil

import (
	"fmt"
	"sync"

	"arrivals-go/internal/ingest"
)

// StubProvider serves scripted page responses keyed by page range. Safe for
// concurrent use. Ranges with no scripted response return an error.
type StubProvider struct {
	mu        sync.Mutex
	responses map[string]*ingest.PageData
	errors    map[string]error
	calls     []ingest.PageRange
}

var _ ingest.Provider = (*StubProvider)(nil)

func NewStubProvider() *StubProvider {
	return &StubProvider{
		responses: make(map[string]*ingest.PageData),
		errors:    make(map[string]error),
	}
}

// SetPage scripts a successful response for the given range.
func (p *StubProvider) SetPage(start, end int, data *ingest.PageData) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[rangeKey(start, end)] = data
}

// SetError scripts a failure for the given range.
func (p *StubProvider) SetError(start, end int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors[rangeKey(start, end)] = err
}

func (p *StubProvider) FetchPage(start, end int) (*ingest.PageData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, ingest.PageRange{Start: start, End: end})
	key := rangeKey(start, end)
	if err, ok := p.errors[key]; ok {
		return nil, err
	}
	if data, ok := p.responses[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no scripted response for range %s", key)
}

// Calls returns the ranges fetched so far, in order.
func (p *StubProvider) Calls() []ingest.PageRange {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := make([]ingest.PageRange, len(p.calls))
	copy(calls, p.calls)
	return calls
}

func rangeKey(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// PageWithRows builds a successful PageData with the given total count and
// one row per name, each row carrying distinct field values.
func PageWithRows(totalCount int, names ...string) *ingest.PageData {
	rows := make([]map[string]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, map[string]string{
			"statnNm":  name,
			"trainNo":  "T" + name,
			"arvlMsg2": "arriving",
		})
	}
	tc := totalCount
	return &ingest.PageData{
		ResultCode:    "INFO-000",
		ResultMessage: "success",
		TotalCount:    &tc,
		Rows:          rows,
	}
}
