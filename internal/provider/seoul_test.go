package provider

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSeoulClient_pageURL(t *testing.T) {
	t.Parallel()

	c := NewSeoulClient("secret", "", "")
	got := c.pageURL(1000, 1999)
	want := "http://swopenAPI.seoul.go.kr/api/subway/secret/xml/realtimeStationArrival/1000/1999/"
	if got != want {
		t.Errorf("pageURL() = %q, want %q", got, want)
	}
}

func TestSeoulClient_FetchPage(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			fmt.Fprint(w, sampleResponse)
		}))
		defer srv.Close()

		c := NewSeoulClient("secret", srv.URL, "")
		page, err := c.FetchPage(0, 999)
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}

		if gotPath != "/secret/xml/realtimeStationArrival/0/999/" {
			t.Errorf("request path = %q", gotPath)
		}
		if page.ResultCode != "INFO-000" {
			t.Errorf("ResultCode = %q, want %q", page.ResultCode, "INFO-000")
		}
		if page.TotalCount == nil || *page.TotalCount != 2 {
			t.Errorf("TotalCount = %v, want 2", page.TotalCount)
		}
		if len(page.Rows) != 2 {
			t.Errorf("got %d rows, want 2", len(page.Rows))
		}
	})

	t.Run("api error code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<res><RESULT><CODE>INFO-200</CODE><MESSAGE>해당하는 데이터가 없습니다.</MESSAGE></RESULT></res>`)
		}))
		defer srv.Close()

		c := NewSeoulClient("secret", srv.URL, "")
		if _, err := c.FetchPage(0, 999); err == nil {
			t.Fatal("FetchPage() error = nil, want api error")
		}
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewSeoulClient("secret", srv.URL, "")
		if _, err := c.FetchPage(0, 999); err == nil {
			t.Fatal("FetchPage() error = nil, want status error")
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // refuse connections

		c := NewSeoulClient("secret", srv.URL, "")
		if _, err := c.FetchPage(0, 999); err == nil {
			t.Fatal("FetchPage() error = nil, want transport error")
		}
	})
}
