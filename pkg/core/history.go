package core

import "time"

// Outcome of a recorded search invocation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Search types stored alongside history entries.
const (
	SearchTypeContent = "content_search"
	SearchTypeQuick   = "quick_search"
)

// HistoryEntry is one append-only record of a search invocation.
type HistoryEntry struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id"`
	Query         string    `json:"query"`
	CandidateID   *int64    `json:"candidate_id"`
	ResultsCount  int       `json:"results_count"`
	SearchTimeMs  int64     `json:"search_time_ms"`
	SearchedAt    time.Time `json:"search_timestamp"`
	SearchType    string    `json:"search_type"`
	Outcome       Outcome   `json:"outcome"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// HistoryFilter selects history entries. Zero values mean no restriction;
// a zero Limit returns every matching entry.
type HistoryFilter struct {
	CandidateID *int64
	From        *time.Time
	To          *time.Time
	Limit       int
}

// DateRange is an optional statistics window. Either bound may be nil.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// PopularQuery is a query ranked by how often it was searched.
type PopularQuery struct {
	Query      string  `json:"query"`
	UsageCount int     `json:"usage_count"`
	AvgResults float64 `json:"avg_results"`
}

// DailyTrend is the search volume for one calendar day (UTC).
type DailyTrend struct {
	Date      string  `json:"date"`
	Searches  int     `json:"searches"`
	AvgTimeMs float64 `json:"avg_time_ms"`
}

// Statistics aggregates history entries. It is derived on demand and never
// stored.
type Statistics struct {
	TotalSearches       int            `json:"total_searches"`
	FailedSearches      int            `json:"failed_searches"`
	UniqueQueries       int            `json:"unique_queries"`
	AverageSearchTimeMs float64        `json:"average_search_time_ms"`
	PopularQueries      []PopularQuery `json:"popular_queries"`
	Trends              []DailyTrend   `json:"search_trends"`
	GeneratedAt         time.Time      `json:"generated_at"`
}
