package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/avasiliev/semkit/pkg/formula"
	"github.com/avasiliev/semkit/pkg/freqindex"
	"github.com/avasiliev/semkit/pkg/segment"
	"github.com/avasiliev/semkit/pkg/wordstat"
)

type errorResponse struct {
	Error             string `json:"error"`
	Kind              string `json:"kind,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

type matchRequest struct {
	Keywords []freqindex.Keyword `json:"keywords"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "frequency index not loaded")
		return
	}
	var req matchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	batch := s.index.MatchBatch(req.Keywords)
	log.Infof("Matched %d/%d keywords (exact=%d word-order=%d stem=%d, database=%d)",
		batch.Matched, len(req.Keywords),
		batch.TierCounts[freqindex.TierExact],
		batch.TierCounts[freqindex.TierWordOrder],
		batch.TierCounts[freqindex.TierStem],
		batch.TotalInDatabase)
	writeJSON(w, http.StatusOK, batch)
}

type expandRequest struct {
	Formulas []string `json:"formulas"`
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if !decodeBody(w, r, &req) {
		return
	}

	exp, err := formula.ExpandBatch(req.Formulas)
	if err != nil {
		var verr *formula.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "frequency index not loaded")
		return
	}
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, "prefix query parameter is required")
		return
	}
	limit := s.suggestLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.index.Suggest(prefix, limit))
}

func (s *Server) handlePutRawResult(w http.ResponseWriter, r *http.Request) {
	var raw segment.RawResult
	if !decodeBody(w, r, &raw) {
		return
	}
	if raw.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.store.PutRawResult(r.Context(), &raw); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": raw.ID, "queries": len(raw.Queries)})
}

func (s *Server) handlePutFilterList(w http.ResponseWriter, r *http.Request) {
	var list segment.FilterList
	if !decodeBody(w, r, &list) {
		return
	}
	if list.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.store.PutFilterList(r.Context(), list); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": list.ID, "items": len(list.Items)})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req segment.SyncRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SegmentID = chi.URLParam(r, "segmentID")
	if req.ResultID == "" {
		writeError(w, http.StatusBadRequest, "resultId is required")
		return
	}

	result, err := s.pipeline.Sync(r.Context(), req)
	if err != nil {
		if errors.Is(err, segment.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}
	cmp, err := s.pipeline.Compare(r.Context(), a, b)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

type removeRequest struct {
	SourceSegmentID string   `json:"sourceSegmentId"`
	TargetSegmentID string   `json:"targetSegmentId"`
	Queries         []string `json:"queries"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SourceSegmentID == "" {
		writeError(w, http.StatusBadRequest, "sourceSegmentId is required")
		return
	}

	counts, err := s.pipeline.RemoveQueriesFavoring(r.Context(), req.SourceSegmentID, req.TargetSegmentID, req.Queries)
	if err != nil {
		if errors.Is(err, segment.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

type reportRequest struct {
	Endpoint string          `json:"endpoint"`
	Payload  json.RawMessage `json:"payload"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		writeError(w, http.StatusServiceUnavailable, "statistics API client not configured")
		return
	}
	var req reportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Endpoint == "" {
		req.Endpoint = "/report"
	}

	resp, err := s.client.Call(r.Context(), req.Endpoint, req.Payload)
	if err != nil {
		var apiErr *wordstat.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, apiErr.Status, errorResponse{
				Error:             apiErr.Message,
				Kind:              string(apiErr.Kind),
				RetryAfterSeconds: int(apiErr.RetryAfter.Seconds()),
			})
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuota(w http.ResponseWriter, _ *http.Request) {
	if s.client == nil {
		writeError(w, http.StatusServiceUnavailable, "statistics API client not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quotaRemaining": s.client.QuotaRemaining()})
}
