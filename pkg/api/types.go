package api

import (
	"time"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/search"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type QuickSearchResponse struct {
	Query   string               `json:"query"`
	Results []search.QuickResult `json:"results"`
	Count   int                  `json:"count"`
}

type HistoryResponse struct {
	Entries []core.HistoryEntry `json:"entries"`
	Count   int                 `json:"count"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Database  *storage.Stats `json:"database,omitempty"`
}

// LiveMessage is the first frame sent on the live feed once the listener is
// registered.
type LiveMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
