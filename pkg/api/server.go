// Package api exposes the search engine over HTTP.
//
// Routes are registered on a standard library ServeMux using method patterns.
// Every response is JSON; failures use ErrorResponse with the machine-readable
// error kind from package core.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/history"
	"github.com/rubiojr/cvsearch/pkg/log"
	"github.com/rubiojr/cvsearch/pkg/metrics"
	"github.com/rubiojr/cvsearch/pkg/realtime"
	"github.com/rubiojr/cvsearch/pkg/search"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

// maxBodyBytes bounds POST request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	search   *search.Service
	history  *history.Recorder
	hub      *realtime.Hub
	store    *storage.Store
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the API server. hub may be nil, in which case the live
// feed route answers 503. store is only used for the health and stats
// endpoints and may be nil.
func NewServer(svc *search.Service, rec *history.Recorder, hub *realtime.Hub, store *storage.Store) *Server {
	return &Server{
		search:  svc,
		history: rec,
		hub:     hub,
		store:   store,
		logger:  log.ForService("api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is served with permissive CORS headers; the live feed
			// follows suit.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns a mux with every route registered, wrapped with the CORS
// and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return CorsMiddleware(metrics.Middleware()(mux))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind core.Kind, message string) {
	response := ErrorResponse{
		Error:   string(kind),
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// writeServiceError maps err to its HTTP status through core.KindOf.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	s.writeError(w, statusForKind(kind), kind, err.Error())
}

func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindInvalidQuery, core.KindInvalidRequest:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
