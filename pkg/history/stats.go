package history

import (
	"math"
	"sort"
	"time"

	"github.com/rubiojr/cvsearch/pkg/core"
)

const dayLayout = "2006-01-02"

// Aggregate computes statistics from entries. It depends on nothing but its
// arguments.
//
// Totals, unique queries, latency, popular queries and trends count
// successful searches only; failures are reported in FailedSearches. When
// window is nil, trends cover the last opts.TrendDays days before now;
// otherwise they cover every entry inside the window. Days are UTC.
func Aggregate(entries []core.HistoryEntry, window *core.DateRange, now time.Time, opts Options) core.Statistics {
	stats := core.Statistics{
		PopularQueries: []core.PopularQuery{},
		Trends:         []core.DailyTrend{},
		GeneratedAt:    now.UTC(),
	}

	type queryAgg struct {
		count   int
		results int
	}
	type dayAgg struct {
		count  int
		timeMs int64
	}

	var trendStart time.Time
	if window == nil && opts.TrendDays > 0 {
		trendStart = now.UTC().AddDate(0, 0, -opts.TrendDays)
	}

	queries := make(map[string]*queryAgg)
	days := make(map[string]*dayAgg)
	var totalTimeMs int64

	for _, e := range entries {
		if !inWindow(e.SearchedAt, window) {
			continue
		}
		if e.Outcome == core.OutcomeFailure {
			stats.FailedSearches++
			continue
		}

		stats.TotalSearches++
		totalTimeMs += e.SearchTimeMs

		q, ok := queries[e.Query]
		if !ok {
			q = &queryAgg{}
			queries[e.Query] = q
		}
		q.count++
		q.results += e.ResultsCount

		if window == nil && (opts.TrendDays <= 0 || e.SearchedAt.Before(trendStart)) {
			continue
		}
		day := e.SearchedAt.UTC().Format(dayLayout)
		d, ok := days[day]
		if !ok {
			d = &dayAgg{}
			days[day] = d
		}
		d.count++
		d.timeMs += e.SearchTimeMs
	}

	stats.UniqueQueries = len(queries)
	if stats.TotalSearches > 0 {
		stats.AverageSearchTimeMs = round(float64(totalTimeMs)/float64(stats.TotalSearches), 2)
	}

	for query, q := range queries {
		stats.PopularQueries = append(stats.PopularQueries, core.PopularQuery{
			Query:      query,
			UsageCount: q.count,
			AvgResults: round(float64(q.results)/float64(q.count), 1),
		})
	}
	sort.Slice(stats.PopularQueries, func(i, j int) bool {
		a, b := stats.PopularQueries[i], stats.PopularQueries[j]
		if a.UsageCount != b.UsageCount {
			return a.UsageCount > b.UsageCount
		}
		return a.Query < b.Query
	})
	if opts.PopularLimit > 0 && len(stats.PopularQueries) > opts.PopularLimit {
		stats.PopularQueries = stats.PopularQueries[:opts.PopularLimit]
	}

	for day, d := range days {
		stats.Trends = append(stats.Trends, core.DailyTrend{
			Date:      day,
			Searches:  d.count,
			AvgTimeMs: round(float64(d.timeMs)/float64(d.count), 1),
		})
	}
	// Newest day first; the layout sorts lexically.
	sort.Slice(stats.Trends, func(i, j int) bool {
		return stats.Trends[i].Date > stats.Trends[j].Date
	})

	return stats
}

func inWindow(t time.Time, window *core.DateRange) bool {
	if window == nil {
		return true
	}
	if window.From != nil && t.Before(*window.From) {
		return false
	}
	if window.To != nil && t.After(*window.To) {
		return false
	}
	return true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
