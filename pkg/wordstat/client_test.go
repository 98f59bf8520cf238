package wordstat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	cfg.HTTPClient = srv.Client()
	return NewClient(cfg)
}

func TestCallCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"data":[1,2,3],"quota_remaining":900}`)
	}, Config{RequestsPerSecond: 100})

	ctx := context.Background()
	payload := map[string]any{"phrases": []string{"тур"}}
	for i := 0; i < 3; i++ {
		resp, err := client.Call(ctx, "/report", payload)
		if err != nil {
			t.Fatal(err)
		}
		if resp.QuotaRemaining != 900 {
			t.Errorf("QuotaRemaining = %d, want 900", resp.QuotaRemaining)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("network calls = %d, want exactly 1 (cache within TTL)", got)
	}
	if client.QuotaRemaining() != 900 {
		t.Errorf("client.QuotaRemaining() = %d, want 900", client.QuotaRemaining())
	}
}

func TestCallDistinctPayloadsNotShared(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	}, Config{RequestsPerSecond: 100})

	ctx := context.Background()
	if _, err := client.Call(ctx, "/report", map[string]string{"q": "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Call(ctx, "/report", map[string]string{"q": "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Call(ctx, "/other", map[string]string{"q": "a"}); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("network calls = %d, want 3 (distinct cache keys)", got)
	}
}

func TestConcurrentIdenticalCallsSingleFlight(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{"data":1}`)
	}, Config{RequestsPerSecond: 100})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Call(ctx, "/report", map[string]string{"q": "same"}); err != nil {
				t.Errorf("Call: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("network calls = %d, want 1 (single-flight dedup)", got)
	}
}

func TestRateLimiterDelaysBeyondBudget(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}, Config{RequestsPerSecond: 10})

	ctx := context.Background()
	start := time.Now()
	// 11 distinct payloads: the burst covers 10, the 11th must wait for
	// the bucket to refill.
	for i := 0; i < 11; i++ {
		if _, err := client.Call(ctx, "/report", map[string]int{"n": i}); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("11 calls at 10 rps finished in %s, expected the 11th to be delayed", elapsed)
	}
}

func TestErrorClassification(t *testing.T) {
	testCases := []struct {
		status      int
		header      http.Header
		body        string
		wantKind    Kind
		wantRetry   time.Duration
		description string
	}{
		{401, nil, `{}`, KindInvalidToken, 0, "401 maps to invalid token"},
		{403, nil, `{}`, KindPermission, 0, "403 maps to permission"},
		{429, http.Header{"Retry-After": []string{"42"}}, `{}`, KindQuota, 42 * time.Second, "429 with Retry-After header"},
		{429, nil, `{"error":{"retry_after_seconds":17}}`, KindQuota, 17 * time.Second, "429 with retry in body"},
		{503, nil, ``, KindUnavailable, 0, "503 maps to unavailable"},
		{418, nil, `teapot`, KindHTTP, 0, "other statuses map to generic HTTP"},
	}

	for _, tc := range testCases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			for k, vs := range tc.header {
				for _, v := range vs {
					w.Header().Set(k, v)
				}
			}
			w.WriteHeader(tc.status)
			fmt.Fprint(w, tc.body)
		}, Config{RequestsPerSecond: 100})

		_, err := client.Call(context.Background(), "/report", map[string]int{"status": tc.status})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Errorf("%s: error = %v, want *APIError", tc.description, err)
			continue
		}
		if apiErr.Kind != tc.wantKind {
			t.Errorf("%s: Kind = %q, want %q", tc.description, apiErr.Kind, tc.wantKind)
		}
		if apiErr.RetryAfter != tc.wantRetry {
			t.Errorf("%s: RetryAfter = %s, want %s", tc.description, apiErr.RetryAfter, tc.wantRetry)
		}
		if apiErr.Status != tc.status {
			t.Errorf("%s: Status = %d, want %d", tc.description, apiErr.Status, tc.status)
		}
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":"ok"}`)
	}, Config{RequestsPerSecond: 100})

	ctx := context.Background()
	payload := map[string]string{"q": "retry"}
	if _, err := client.Call(ctx, "/report", payload); err == nil {
		t.Fatal("first call should fail with 503")
	}
	resp, err := client.Call(ctx, "/report", payload)
	if err != nil {
		t.Fatalf("second call should succeed after transient failure: %v", err)
	}
	if string(resp.Data) != `{"data":"ok"}` {
		t.Errorf("Data = %s", resp.Data)
	}
	if calls.Load() != 2 {
		t.Errorf("network calls = %d, want 2", calls.Load())
	}
}

func TestCacheExpiry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	}, Config{RequestsPerSecond: 100, CacheTTL: 30 * time.Millisecond})

	ctx := context.Background()
	payload := map[string]string{"q": "expiring"}
	if _, err := client.Call(ctx, "/report", payload); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := client.Call(ctx, "/report", payload); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("network calls = %d, want 2 after TTL expiry", calls.Load())
	}
	// Expired entries are overwritten in place, never evicted early.
	if client.cache.len() != 1 {
		t.Errorf("cache entries = %d, want 1", client.cache.len())
	}
}
