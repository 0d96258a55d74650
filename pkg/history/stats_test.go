package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/cvsearch/pkg/core"
)

var now = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func entry(query string, ago time.Duration, ms int64, results int, outcome core.Outcome) core.HistoryEntry {
	return core.HistoryEntry{
		Query:        query,
		SearchedAt:   now.Add(-ago),
		SearchTimeMs: ms,
		ResultsCount: results,
		SearchType:   core.SearchTypeContent,
		Outcome:      outcome,
	}
}

func sampleEntries() []core.HistoryEntry {
	day := 24 * time.Hour
	return []core.HistoryEntry{
		entry("golang", time.Hour, 10, 4, core.OutcomeSuccess),
		entry("golang", 2*time.Hour, 20, 2, core.OutcomeSuccess),
		entry("rust", day+time.Hour, 30, 1, core.OutcomeSuccess),
		entry("kubernetes", 2*day, 5, 0, core.OutcomeSuccess),
		entry("golang", 3*day, 15, 3, core.OutcomeSuccess),
		entry("java", 20*day, 40, 7, core.OutcomeSuccess),
		entry("golang", time.Hour, 3, 0, core.OutcomeFailure),
	}
}

func TestAggregate(t *testing.T) {
	stats := Aggregate(sampleEntries(), nil, now, DefaultOptions())

	assert.Equal(t, 6, stats.TotalSearches)
	assert.Equal(t, 1, stats.FailedSearches)
	assert.Equal(t, 4, stats.UniqueQueries)
	assert.InDelta(t, 20.0, stats.AverageSearchTimeMs, 0.001)
	assert.Equal(t, now, stats.GeneratedAt)

	require.Len(t, stats.PopularQueries, 4)
	assert.Equal(t, core.PopularQuery{Query: "golang", UsageCount: 3, AvgResults: 3}, stats.PopularQueries[0])
	assert.Equal(t, "java", stats.PopularQueries[1].Query, "ties ordered by query")
	assert.Equal(t, "kubernetes", stats.PopularQueries[2].Query)
	assert.Equal(t, "rust", stats.PopularQueries[3].Query)

	// The java search is older than the trend window.
	require.Len(t, stats.Trends, 4)
	assert.Equal(t, core.DailyTrend{Date: "2024-06-10", Searches: 2, AvgTimeMs: 15}, stats.Trends[0])
	assert.Equal(t, "2024-06-09", stats.Trends[1].Date)
	assert.Equal(t, "2024-06-08", stats.Trends[2].Date)
	assert.Equal(t, "2024-06-07", stats.Trends[3].Date)
}

func TestAggregateWindow(t *testing.T) {
	from := now.Add(-25 * 24 * time.Hour)
	to := now.Add(-36 * time.Hour)
	stats := Aggregate(sampleEntries(), &core.DateRange{From: &from, To: &to}, now, DefaultOptions())

	assert.Equal(t, 3, stats.TotalSearches)
	assert.Zero(t, stats.FailedSearches)
	require.Len(t, stats.Trends, 3)
	assert.Equal(t, "2024-05-21", stats.Trends[2].Date)
}

func TestAggregatePopularLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.PopularLimit = 2
	stats := Aggregate(sampleEntries(), nil, now, opts)
	assert.Len(t, stats.PopularQueries, 2)
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil, nil, now, DefaultOptions())

	assert.Zero(t, stats.TotalSearches)
	assert.Zero(t, stats.AverageSearchTimeMs)
	assert.NotNil(t, stats.PopularQueries)
	assert.NotNil(t, stats.Trends)
}

func TestAggregateIsPure(t *testing.T) {
	entries := sampleEntries()
	first := Aggregate(entries, nil, now, DefaultOptions())
	second := Aggregate(entries, nil, now, DefaultOptions())
	assert.Equal(t, first, second)
}
