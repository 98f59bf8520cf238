// Package server exposes the keyword toolkit over HTTP: batch matching,
// formula expansion, prefix suggestions, segment sync/compare/removal, and a
// proxied reporting endpoint on the rate-limited statistics client.
package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avasiliev/semkit/internal/store"
	"github.com/avasiliev/semkit/pkg/freqindex"
	"github.com/avasiliev/semkit/pkg/segment"
	"github.com/avasiliev/semkit/pkg/wordstat"
)

// Server wires the core components behind the HTTP API. The index is
// immutable once built; everything else manages its own locking.
type Server struct {
	index        *freqindex.Index
	pipeline     *segment.Pipeline
	store        *store.Store
	client       *wordstat.Client
	suggestLimit int
}

func New(index *freqindex.Index, docs *store.Store, client *wordstat.Client, suggestLimit int) *Server {
	return &Server{
		index:        index,
		pipeline:     segment.NewPipeline(docs),
		store:        docs,
		client:       client,
		suggestLimit: suggestLimit,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Post("/expand", s.handleExpand)
		r.Get("/suggest", s.handleSuggest)

		r.Post("/results", s.handlePutRawResult)
		r.Post("/filters", s.handlePutFilterList)

		r.Route("/segments", func(r chi.Router) {
			r.Post("/{segmentID}/sync", s.handleSync)
			r.Get("/compare", s.handleCompare)
			r.Post("/remove", s.handleRemove)
		})

		r.Post("/wordstat/report", s.handleReport)
		r.Get("/wordstat/quota", s.handleQuota)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// ListenAndServe runs the HTTP server until it fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Infof("Listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}
