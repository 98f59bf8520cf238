package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/avasiliev/semkit/internal/store"
	"github.com/avasiliev/semkit/pkg/freqindex"
	"github.com/avasiliev/semkit/pkg/wordstat"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	b := freqindex.NewBuilder()
	b.Add([]freqindex.Record{
		{Query: "купить тур", Count: 120},
		{Query: "тур в москву", Count: 300},
		{Query: "отдых", Count: 30},
	})

	docs, err := store.Open(filepath.Join(t.TempDir(), "server_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { docs.Close() })

	return New(b.Build(), docs, nil, 24)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestMatchEndpoint(t *testing.T) {
	router := newTestServer(t).Router()
	rr := doJSON(t, router, "POST", "/api/match", map[string]any{
		"keywords": []map[string]string{
			{"id": "k1", "name": "купить тур"},
			{"id": "k2", "name": "нет такого"},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var batch freqindex.BatchResult
	if err := json.Unmarshal(rr.Body.Bytes(), &batch); err != nil {
		t.Fatal(err)
	}
	if batch.Matched != 1 || batch.TotalInDatabase != 3 {
		t.Errorf("batch = %+v", batch)
	}
	if res := batch.Results["k1"]; !res.Found || res.Count != 120 {
		t.Errorf("k1 result = %+v", res)
	}
}

func TestExpandEndpointValidation(t *testing.T) {
	router := newTestServer(t).Router()

	rr := doJSON(t, router, "POST", "/api/expand", map[string]any{
		"formulas": []string{"автобусные (туры|экскурсии)"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, router, "POST", "/api/expand", map[string]any{
		"formulas": []string{"сломано (тур|"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid formula: status = %d, want 400", rr.Code)
	}
}

func TestSegmentEndpoints(t *testing.T) {
	router := newTestServer(t).Router()

	rr := doJSON(t, router, "POST", "/api/results", map[string]any{
		"id": "r1",
		"queries": []map[string]any{
			{"query": "купить тур", "count": 100},
			{"query": "отдых", "count": 30},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("put result: status = %d, body %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, router, "POST", "/api/filters", map[string]any{
		"id": "f1", "items": []string{"тур"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("put filter: status = %d, body %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, router, "POST", "/api/segments/s1/sync", map[string]any{
		"resultId": "r1", "segmentName": "Туры", "filterIds": []string{"f1"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("sync: status = %d, body %s", rr.Code, rr.Body)
	}
	var synced struct {
		TotalImpressions int    `json:"totalImpressions"`
		SourceResultID   string `json:"sourceResultId"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &synced); err != nil {
		t.Fatal(err)
	}
	if synced.TotalImpressions != 30 || synced.SourceResultID != "r1" {
		t.Errorf("synced = %+v", synced)
	}

	rr = doJSON(t, router, "GET", "/api/segments/compare?a=s1&b=missing", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("compare: status = %d, body %s", rr.Code, rr.Body)
	}

	rr = doJSON(t, router, "POST", "/api/segments/remove", map[string]any{
		"sourceSegmentId": "s1", "targetSegmentId": "s2", "queries": []string{"отдых"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("remove: status = %d, body %s", rr.Code, rr.Body)
	}
}

func TestSyncMissingResultIs404(t *testing.T) {
	router := newTestServer(t).Router()
	rr := doJSON(t, router, "POST", "/api/segments/s1/sync", map[string]any{"resultId": "absent"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404; body %s", rr.Code, rr.Body)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	router := newTestServer(t).Router()
	rr := doJSON(t, router, "GET", "/api/suggest?prefix=тур&limit=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var records []freqindex.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Query != "тур в москву" {
		t.Errorf("suggest = %v", records)
	}

	rr = doJSON(t, router, "GET", "/api/suggest", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing prefix: status = %d, want 400", rr.Code)
	}
}

func TestReportEndpointMapsAPIErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"daily limit reached"}}`)
	}))
	defer upstream.Close()

	b := freqindex.NewBuilder()
	docs, err := store.Open(filepath.Join(t.TempDir(), "server_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer docs.Close()

	client := wordstat.NewClient(wordstat.Config{
		BaseURL:           upstream.URL,
		RequestsPerSecond: 100,
		HTTPClient:        upstream.Client(),
	})
	router := New(b.Build(), docs, client, 24).Router()

	rr := doJSON(t, router, "POST", "/api/wordstat/report", map[string]any{
		"payload": map[string]any{"phrases": []string{"тур"}},
	})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429; body %s", rr.Code, rr.Body)
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Kind != string(wordstat.KindQuota) || resp.RetryAfterSeconds != 60 {
		t.Errorf("error response = %+v", resp)
	}
}
