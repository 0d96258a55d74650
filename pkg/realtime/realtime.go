// Package realtime provides an in-process publish/subscribe hub used to fan
// out search events to live listeners (the /api/search/live WebSocket feed).
//
// Delivery is best effort: every listener owns a buffered channel and an event
// that does not fit is dropped for that listener only, so a slow consumer never
// delays the search that produced the event. There is no persistence or replay.
package realtime

import (
	"sync"
	"time"

	"github.com/rubiojr/cvsearch/pkg/core"
)

// Event types.
const (
	TypeSearch = "search"
)

// SearchEvent describes one recorded search invocation.
type SearchEvent struct {
	RequestID    string       `json:"request_id"`
	Query        string       `json:"query"`
	CandidateID  *int64       `json:"candidate_id,omitempty"`
	SearchType   string       `json:"search_type"`
	Outcome      core.Outcome `json:"outcome"`
	ResultsCount int          `json:"results_count"`
	SearchTimeMs int64        `json:"search_time_ms"`
	SearchedAt   time.Time    `json:"search_timestamp"`
}

// NewSearchEvent builds the event published for a history entry.
func NewSearchEvent(e core.HistoryEntry) SearchEvent {
	return SearchEvent{
		RequestID:    e.RequestID,
		Query:        e.Query,
		CandidateID:  e.CandidateID,
		SearchType:   e.SearchType,
		Outcome:      e.Outcome,
		ResultsCount: e.ResultsCount,
		SearchTimeMs: e.SearchTimeMs,
		SearchedAt:   e.SearchedAt,
	}
}

// Event is the envelope delivered to listeners.
type Event struct {
	Type   string      `json:"type"`
	Search SearchEvent `json:"search"`
}

// Hub is a concurrency-safe fan-out dispatcher.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a new listener and returns (listenerID, receiveOnlyChannel).
// Callers must later Unregister(id) to release resources.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener with the given id and closes its channel.
// It is safe to call multiple times; unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Publish delivers a search event to all registered listeners.
func (h *Hub) Publish(se SearchEvent) {
	ev := Event{Type: TypeSearch, Search: se}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the current number of active listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
