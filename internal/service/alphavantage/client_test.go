package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	drepo "StockCast/internal/domain/repository"
)

const dailyBody = `{
    "Meta Data": {"2. Symbol": "IBM"},
    "Time Series (Daily)": {
        "2024-03-14": {"1. open": "10.00", "2. high": "11.00", "3. low": "9.50", "4. close": "10.50", "5. volume": "1000"},
        "2024-03-15": {"1. open": "10.50", "2. high": "12.00", "3. low": "10.25", "4. close": "11.75", "5. volume": "2500"},
        "2024-03-13": {"1. open": "9.00", "2. high": "10.10", "3. low": "8.90", "4. close": "10.00", "5. volume": "900"}
    }
}`

func TestParseDailySortsNewestFirst(t *testing.T) {
	series, err := ParseDaily("ibm", []byte(dailyBody))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if series.Symbol != "IBM" || len(series.Bars) != 3 {
		t.Fatalf("unexpected series %+v", series)
	}
	first := series.Bars[0]
	if first.Date.Format("2006-01-02") != "2024-03-15" || first.Close != 11.75 || first.Volume != 2500 {
		t.Fatalf("unexpected newest bar %+v", first)
	}
	if series.Bars[2].Date.Format("2006-01-02") != "2024-03-13" {
		t.Fatalf("bars not newest first: %+v", series.Bars)
	}
	if string(series.Raw) != dailyBody {
		t.Fatalf("raw payload not kept")
	}
}

func TestParseDailyErrorPriority(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"error field", `{"Error Message": "Invalid API call", "Note": "slow down"}`, drepo.ErrUpstreamUnavailable},
		{"note", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, drepo.ErrRateLimited},
		{"information rate limit", `{"Information": "Our standard API rate limit is 25 requests per day."}`, drepo.ErrRateLimited},
		{"information other", `{"Information": "This is a premium endpoint."}`, drepo.ErrUpstreamUnavailable},
		{"missing series", `{"Meta Data": {}}`, drepo.ErrUpstreamUnavailable},
		{"malformed", `not json`, drepo.ErrUpstreamUnavailable},
		{"no valid bars", `{"Time Series (Daily)": {"2024-01-02": {"1. open": "x"}}}`, drepo.ErrUpstreamUnavailable},
	}
	for _, tc := range cases {
		_, err := ParseDaily("IBM", []byte(tc.body))
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL:           url,
		APIKey:            "demo",
		ConnectTimeout:    time.Second,
		ReadTimeout:       time.Second,
		RequestsPerMinute: 6000,
		Burst:             10,
	}, nil, nil)
}

func TestFetchDaily(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		q := r.URL.Query()
		if q.Get("function") != "TIME_SERIES_DAILY" || q.Get("symbol") != "IBM" || q.Get("apikey") != "demo" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write([]byte(dailyBody))
	}))
	defer srv.Close()

	series, err := newTestClient(srv.URL).FetchDaily(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series.Bars) != 3 || atomic.LoadInt64(&calls) != 1 {
		t.Fatalf("bars=%d calls=%d", len(series.Bars), calls)
	}
}

func TestFetchDailyFailures(t *testing.T) {
	var status atomic.Int64
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()
	c := newTestClient(srv.URL)

	if _, err := c.FetchDaily(context.Background(), "IBM"); !errors.Is(err, drepo.ErrRateLimited) {
		t.Fatalf("429: got %v", err)
	}
	status.Store(http.StatusBadGateway)
	if _, err := c.FetchDaily(context.Background(), "IBM"); !errors.Is(err, drepo.ErrUpstreamUnavailable) {
		t.Fatalf("502: got %v", err)
	}

	noKey := New(Config{BaseURL: srv.URL}, nil, nil)
	if _, err := noKey.FetchDaily(context.Background(), "IBM"); !errors.Is(err, drepo.ErrUpstreamUnavailable) {
		t.Fatalf("missing key: got %v", err)
	}
}
