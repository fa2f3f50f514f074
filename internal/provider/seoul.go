package provider

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"arrivals-go/internal/ingest"
)

const (
	// DefaultBaseURL is the public endpoint of the arrival OpenAPI.
	DefaultBaseURL = "http://swopenAPI.seoul.go.kr/api/subway"
	// DefaultService is the realtime station arrival service name.
	DefaultService = "realtimeStationArrival"

	successCode = "INFO-000"
)

// SeoulClient fetches realtime arrival pages from the Seoul subway OpenAPI.
// It implements ingest.Provider.
type SeoulClient struct {
	apiKey     string
	baseURL    string
	service    string
	httpClient *http.Client

	// The station segment is left empty to pull the full network in one
	// paginated sweep. Callers never see or set this; it stays a provider
	// implementation detail.
	stationName string
}

var _ ingest.Provider = (*SeoulClient)(nil)

// NewSeoulClient creates a client for the arrival OpenAPI. Empty baseURL or
// service fall back to the public defaults.
func NewSeoulClient(apiKey, baseURL, service string) *SeoulClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if service == "" {
		service = DefaultService
	}
	return &SeoulClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		service: service,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// FetchPage fetches one inclusive page range and parses it. Transport
// failures, non-200 statuses and API error codes all come back as a single
// error condition.
func (c *SeoulClient) FetchPage(start, end int) (*ingest.PageData, error) {
	url := c.pageURL(start, end)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("requesting page %d-%d: %w", start, end, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %d-%d: unexpected status %d", start, end, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading page %d-%d: %w", start, end, err)
	}

	code, message, totalCount, rows, err := ParseArrivalXML(body)
	if err != nil {
		return nil, fmt.Errorf("page %d-%d: %w", start, end, err)
	}

	if code != successCode {
		return nil, fmt.Errorf("page %d-%d: api error %s: %s", start, end, code, message)
	}

	return &ingest.PageData{
		ResultCode:    code,
		ResultMessage: message,
		TotalCount:    totalCount,
		Rows:          rows,
	}, nil
}

func (c *SeoulClient) pageURL(start, end int) string {
	return fmt.Sprintf("%s/%s/xml/%s/%d/%d/%s",
		c.baseURL, c.apiKey, c.service, start, end, c.stationName)
}
