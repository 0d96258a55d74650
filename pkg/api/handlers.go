package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/metrics"
	"github.com/rubiojr/cvsearch/pkg/search"
	"github.com/rubiojr/cvsearch/pkg/version"
)

const (
	dateLayout       = "2006-01-02"
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := search.ParseRequest(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.runSearch(w, r, req)
}

// HandleSearchJSON accepts the request as a JSON body. Absent fields keep the
// defaults of search.NewRequest.
func (s *Server) HandleSearchJSON(w http.ResponseWriter, r *http.Request) {
	req := search.NewRequest("")
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, core.KindInvalidRequest, fmt.Sprintf("decoding request body: %v", err))
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req search.Request) {
	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleQuickSearch(w http.ResponseWriter, r *http.Request) {
	// Only q, candidate_id and limit are meaningful here.
	req, err := search.ParseRequest(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	results, err := s.search.QuickSearch(r.Context(), req.Query, req.CandidateID, req.Limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, QuickSearchResponse{
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var candidateID *int64
	if v := params.Get("candidate_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, core.KindInvalidRequest, fmt.Sprintf("candidate_id %q is not an integer", v))
			return
		}
		candidateID = &id
	}

	limit := 0
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, core.KindInvalidRequest, fmt.Sprintf("limit %q is not an integer", v))
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), candidateID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, HistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

// HandleStatistics aggregates the history. from and to are UTC calendar days,
// both inclusive.
func (s *Server) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	stats, err := s.history.Statistics(r.Context(), window)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func parseWindow(from, to string) (*core.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	window := &core.DateRange{}
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return nil, fmt.Errorf("%w: from %q is not a YYYY-MM-DD date", core.ErrInvalidRequest, from)
		}
		window.From = &t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return nil, fmt.Errorf("%w: to %q is not a YYYY-MM-DD date", core.ErrInvalidRequest, to)
		}
		end := t.Add(24*time.Hour - time.Millisecond)
		window.To = &end
	}
	return window, nil
}

// HandleLive streams every recorded search over a WebSocket. The first frame
// is a LiveMessage of type "init"; each following frame is a realtime.Event.
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeError(w, http.StatusServiceUnavailable, core.KindInternal, "live feed is disabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, events := s.hub.Register()
	defer s.hub.Unregister(id)
	metrics.LiveListeners.Inc()
	defer metrics.LiveListeners.Dec()

	// Clients never send data; reading detects when they go away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeFrame(conn, LiveMessage{Type: "init", Timestamp: time.Now().UTC()}); err != nil {
		s.logger.Debugf("live listener %d: %v", id, err)
		return
	}

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeFrame(conn, ev); err != nil {
				s.logger.Debugf("live listener %d: %v", id, err)
				return
			}
		case <-ping.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Debugf("live listener %d: ping: %v", id, err)
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, core.KindInternal, "no database configured")
		return
	}

	stats, err := s.store.GetStats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, core.KindFetchFailure, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	if s.store != nil {
		stats, err := s.store.GetStats()
		if err != nil {
			health.Status = "degraded"
			s.logger.Warnf("health check: %v", err)
		} else {
			health.Database = stats
		}
	}

	s.writeJSON(w, http.StatusOK, health)
}
