package api

import (
	"net/http"

	"github.com/rubiojr/cvsearch/pkg/metrics"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("POST /api/search", s.HandleSearchJSON)
	mux.HandleFunc("GET /api/search/quick", s.HandleQuickSearch)
	mux.HandleFunc("GET /api/search/history", s.HandleHistory)
	mux.HandleFunc("GET /api/search/statistics", s.HandleStatistics)
	mux.HandleFunc("GET /api/search/live", s.HandleLive)
	mux.HandleFunc("GET /api/stats", s.HandleStats)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}
