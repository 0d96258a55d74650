// Package history records search invocations and derives analytics from them.
//
// The Recorder is the write path: every search, successful or not, is appended
// to a Store. Recording is best effort and never fails the search that
// produced the entry. Statistics and suggestions are read-only views over the
// stored entries.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rubiojr/cvsearch/pkg/analysis"
	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/log"
	"github.com/rubiojr/cvsearch/pkg/metrics"
	"github.com/rubiojr/cvsearch/pkg/realtime"
)

// Store persists history entries.
type Store interface {
	AppendHistory(ctx context.Context, e core.HistoryEntry) (int64, error)
	ListHistory(ctx context.Context, filter core.HistoryFilter) ([]core.HistoryEntry, error)
	SuccessfulQueries(ctx context.Context, exclude string, visit func(query string) bool) error
}

// Options tunes the analytics views.
type Options struct {
	// TrendDays is the trend window used when Statistics gets no window.
	TrendDays int

	// PopularLimit caps the popular query list.
	PopularLimit int

	// HistoryLimit is the default number of entries returned by Recent.
	HistoryLimit int
}

// DefaultOptions returns the stock analytics settings.
func DefaultOptions() Options {
	return Options{
		TrendDays:    7,
		PopularLimit: 10,
		HistoryLimit: 50,
	}
}

// Recorder writes and reads the search history.
type Recorder struct {
	store    Store
	opts     Options
	hub      *realtime.Hub
	analyzer *analysis.Analyzer
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithOptions replaces DefaultOptions.
func WithOptions(o Options) Option {
	return func(r *Recorder) { r.opts = o }
}

// WithHub publishes every recorded entry on h.
func WithHub(h *realtime.Hub) Option {
	return func(r *Recorder) { r.hub = h }
}

// WithAnalyzer sets the analyzer used to match suggestion words.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(r *Recorder) {
		if a != nil {
			r.analyzer = a
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:    store,
		opts:     DefaultOptions(),
		analyzer: analysis.Default(),
		logger:   log.ForService("history"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends e to the history, assigning a request id and timestamp when
// missing. Failures are logged as core.ErrRecordFailure and swallowed.
func (r *Recorder) Record(ctx context.Context, e core.HistoryEntry) {
	if e.RequestID == "" {
		e.RequestID = uuid.NewString()
	}
	if e.SearchedAt.IsZero() {
		e.SearchedAt = r.now().UTC()
	}
	if e.SearchType == "" {
		e.SearchType = core.SearchTypeContent
	}
	if e.Outcome == "" {
		e.Outcome = core.OutcomeSuccess
	}

	metrics.ObserveSearch(e.SearchType, string(e.Outcome), time.Duration(e.SearchTimeMs)*time.Millisecond, e.ResultsCount)

	id, err := r.store.AppendHistory(ctx, e)
	if err != nil {
		metrics.HistoryWriteErrorsTotal.Inc()
		r.logger.Errorf("%v", fmt.Errorf("%w: request %s: %w", core.ErrRecordFailure, e.RequestID, err))
		return
	}
	e.ID = id

	if r.hub != nil {
		r.hub.Publish(realtime.NewSearchEvent(e))
	}
}

// Recent returns the newest entries, optionally for one candidate. A zero
// limit means Options.HistoryLimit.
func (r *Recorder) Recent(ctx context.Context, candidateID *int64, limit int) ([]core.HistoryEntry, error) {
	if limit == 0 {
		limit = r.opts.HistoryLimit
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative, got %d", core.ErrInvalidRequest, limit)
	}

	entries, err := r.store.ListHistory(ctx, core.HistoryFilter{CandidateID: candidateID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: reading search history: %w", core.ErrFetchFailure, err)
	}
	if entries == nil {
		entries = []core.HistoryEntry{}
	}
	return entries, nil
}

// Statistics aggregates the entries within window, or every entry when window
// is nil.
func (r *Recorder) Statistics(ctx context.Context, window *core.DateRange) (*core.Statistics, error) {
	if window != nil && window.From != nil && window.To != nil && window.To.Before(*window.From) {
		return nil, fmt.Errorf("%w: statistics window ends before it starts", core.ErrInvalidRequest)
	}

	filter := core.HistoryFilter{}
	if window != nil {
		filter.From = window.From
		filter.To = window.To
	}

	entries, err := r.store.ListHistory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: reading search history: %w", core.ErrFetchFailure, err)
	}

	stats := Aggregate(entries, window, r.now(), r.opts)
	return &stats, nil
}

// Suggest returns up to limit earlier successful queries sharing a word with
// words, most used first. raw itself is never suggested.
func (r *Recorder) Suggest(ctx context.Context, raw string, words []string, limit int) ([]string, error) {
	if len(words) == 0 || limit <= 0 {
		return []string{}, nil
	}

	wanted := make(map[string]bool, len(words))
	for _, w := range words {
		wanted[w] = true
	}

	suggestions := []string{}
	err := r.store.SuccessfulQueries(ctx, raw, func(q string) bool {
		for _, w := range r.analyzer.Normalize(q) {
			if wanted[w] {
				suggestions = append(suggestions, q)
				break
			}
		}
		return len(suggestions) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("loading successful queries: %w", err)
	}
	return suggestions, nil
}
