package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/log"
	"github.com/rubiojr/cvsearch/pkg/query"
	"github.com/rubiojr/cvsearch/pkg/rank"
)

// DocumentSource provides the corpus a search runs against.
type DocumentSource interface {
	// FetchDocuments returns the non-deleted documents matching filter, in
	// any order.
	FetchDocuments(ctx context.Context, filter core.DocumentFilter) ([]core.Document, error)

	// CandidateExists reports whether a candidate with id exists.
	CandidateExists(ctx context.Context, id int64) (bool, error)
}

// Recorder receives the outcome of every search and proposes related
// queries. Record must not fail the search: implementations log their own
// errors.
type Recorder interface {
	Record(ctx context.Context, entry core.HistoryEntry)
	Suggest(ctx context.Context, raw string, words []string, limit int) ([]string, error)
}

// Service runs searches. It is safe for concurrent use.
type Service struct {
	docs     DocumentSource
	recorder Recorder
	pool     *ants.Pool
	logger   *log.Logger
	opts     atomic.Pointer[Options]
}

// Option configures a Service.
type Option func(*Service)

// WithOptions replaces DefaultOptions.
func WithOptions(o Options) Option {
	return func(s *Service) { s.SetOptions(o) }
}

// WithPool scores large corpora on p.
func WithPool(p *ants.Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithLogger replaces the "search" service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a search service. recorder may be nil, in which case
// nothing is recorded and no suggestions are made.
func NewService(docs DocumentSource, recorder Recorder, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		recorder: recorder,
		logger:   log.ForService("search"),
	}
	s.SetOptions(DefaultOptions())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options returns the current settings.
func (s *Service) Options() Options {
	return *s.opts.Load()
}

// SetOptions atomically swaps the settings used by subsequent searches.
func (s *Service) SetOptions(o Options) {
	if o.Analyzer == nil {
		o.Analyzer = DefaultOptions().Analyzer
	}
	s.opts.Store(&o)
}

// Search parses req.Query, scores every candidate document, and returns the
// requested page of matches ordered by relevance, then document id.
//
// Client faults (core.ErrInvalidRequest, core.ErrInvalidQuery,
// core.ErrNotFound) are returned before any document is read. A failing
// document source yields core.ErrFetchFailure and is recorded as a failed
// search.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	return s.search(ctx, req, core.SearchTypeContent)
}

// QuickSearch runs a search without highlights and returns a flat list of
// the first limit results. A zero limit means Options.QuickLimit.
func (s *Service) QuickSearch(ctx context.Context, raw string, candidateID *int64, limit int) ([]QuickResult, error) {
	if limit == 0 {
		limit = s.Options().QuickLimit
	}
	req := Request{
		Query:         raw,
		CandidateID:   candidateID,
		Limit:         limit,
		ExtractedOnly: true,
	}
	resp, err := s.search(ctx, req, core.SearchTypeQuick)
	if err != nil {
		return nil, err
	}

	quick := make([]QuickResult, len(resp.Results))
	for i, r := range resp.Results {
		quick[i] = QuickResult{
			DocumentID:     r.DocumentID,
			CandidateName:  r.CandidateName,
			Filename:       r.Filename,
			RelevanceScore: r.RelevanceScore,
			MatchCount:     r.MatchCount,
		}
	}
	return quick, nil
}

// match is a document that passed the presence gate.
type match struct {
	doc   core.Document
	score rank.Score
}

func (s *Service) search(ctx context.Context, req Request, searchType string) (*Response, error) {
	opts := s.Options()

	req, err := opts.prepare(req)
	if err != nil {
		return nil, err
	}

	q, err := query.Parse(req.Query, query.Options{MaxLength: opts.MaxQueryLength, Analyzer: opts.Analyzer})
	if err != nil {
		return nil, err
	}

	if req.CandidateID != nil {
		exists, err := s.docs.CandidateExists(ctx, *req.CandidateID)
		if err != nil {
			err = fmt.Errorf("%w: checking candidate %d: %w", core.ErrFetchFailure, *req.CandidateID, err)
			s.recordFailure(ctx, req, searchType, 0, err)
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: candidate with ID %d not found", core.ErrNotFound, *req.CandidateID)
		}
	}

	start := time.Now()

	docs, err := s.docs.FetchDocuments(ctx, core.DocumentFilter{
		CandidateID:   req.CandidateID,
		ExtractedOnly: req.ExtractedOnly,
	})
	if err != nil {
		err = fmt.Errorf("%w: fetching documents: %w", core.ErrFetchFailure, err)
		s.recordFailure(ctx, req, searchType, time.Since(start), err)
		return nil, err
	}

	matches := s.scoreAll(q, docs, opts)
	sortMatches(matches)

	total := len(matches)
	page := paginate(matches, req.Offset, req.Limit)

	var highlighter *rank.Highlighter
	if req.IncludeHighlights {
		highlighter = rank.NewHighlighter(opts.Analyzer, opts.Highlight)
	}

	results := make([]Result, len(page))
	for i, m := range page {
		results[i] = newResult(m)
		if highlighter != nil {
			results[i].Highlights = highlighter.Highlight(q, m.doc.ExtractedText, req.HighlightLength)
		}
		if results[i].Highlights == nil {
			results[i].Highlights = []rank.Highlight{}
		}
	}

	elapsed := time.Since(start)
	s.logger.Debugf("query %q: %d/%d documents matched in %s", q.String(), total, len(docs), elapsed)

	suggestions := s.suggest(ctx, q, opts)

	if s.recorder != nil {
		s.recorder.Record(context.WithoutCancel(ctx), core.HistoryEntry{
			Query:        req.Query,
			CandidateID:  req.CandidateID,
			ResultsCount: total,
			SearchTimeMs: elapsed.Milliseconds(),
			SearchType:   searchType,
			Outcome:      core.OutcomeSuccess,
		})
	}

	totalPages := 1
	if total > 0 {
		totalPages = (total + req.Limit - 1) / req.Limit
	}

	return &Response{
		Query:             req.Query,
		CandidateID:       req.CandidateID,
		TotalResults:      total,
		SearchTimeMs:      elapsed.Milliseconds(),
		Page:              req.Offset/req.Limit + 1,
		PerPage:           req.Limit,
		TotalPages:        totalPages,
		HasNext:           req.Offset+req.Limit < total,
		HasPrevious:       req.Offset > 0,
		Results:           results,
		SearchSuggestions: suggestions,
	}, nil
}

// scoreAll scores every document carrying text and keeps the matches. Large
// corpora are scored on the worker pool; results are collected by index so
// the outcome does not depend on scheduling.
func (s *Service) scoreAll(q *query.Query, docs []core.Document, opts Options) []match {
	scorer := rank.NewScorer(opts.Analyzer, opts.Weights)
	scores := make([]rank.Score, len(docs))

	scoreOne := func(i int) {
		if docs[i].HasText() {
			scores[i] = scorer.Score(q, docs[i].ExtractedText, 0)
		}
	}

	if s.pool != nil && opts.ParallelThreshold > 0 && len(docs) >= opts.ParallelThreshold {
		var wg sync.WaitGroup
		for i := range docs {
			wg.Add(1)
			err := s.pool.Submit(func() {
				defer wg.Done()
				scoreOne(i)
			})
			if err != nil {
				// Pool closed or saturated in non-blocking mode.
				wg.Done()
				scoreOne(i)
			}
		}
		wg.Wait()
	} else {
		for i := range docs {
			scoreOne(i)
		}
	}

	matches := make([]match, 0, len(docs))
	for i, sc := range scores {
		if sc.Matched {
			matches = append(matches, match{doc: docs[i], score: sc})
		}
	}
	return matches
}

// sortMatches orders by score descending, then document id ascending.
func sortMatches(matches []match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score.Value != matches[j].score.Value {
			return matches[i].score.Value > matches[j].score.Value
		}
		return matches[i].doc.ID < matches[j].doc.ID
	})
}

func paginate(matches []match, offset, limit int) []match {
	if offset >= len(matches) {
		return nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end]
}

func newResult(m match) Result {
	return Result{
		DocumentID:     m.doc.ID,
		CandidateID:    m.doc.CandidateID,
		CandidateName:  m.doc.CandidateName,
		Filename:       m.doc.Filename,
		RelevanceScore: m.score.Value,
		MatchCount:     m.score.MatchCount,
		UploadedAt:     m.doc.UploadedAt,
		ExtractedAt:    m.doc.ExtractedAt,
		DownloadURL:    DownloadURL(m.doc.CandidateID, m.doc.ID),
		FileSize:       m.doc.FileSize,
	}
}

// suggest asks the recorder for related queries. Any failure, including a
// panic in the recorder, degrades to an empty list.
func (s *Service) suggest(ctx context.Context, q *query.Query, opts Options) (suggestions []string) {
	suggestions = []string{}
	if s.recorder == nil || opts.SuggestionLimit <= 0 {
		return suggestions
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnf("suggestions for %q panicked: %v", q.Raw(), r)
			suggestions = []string{}
		}
	}()

	list, err := s.recorder.Suggest(ctx, q.Raw(), q.Words(), opts.SuggestionLimit)
	if err != nil {
		s.logger.Debugf("suggestions for %q: %v", q.Raw(), err)
		return suggestions
	}
	if list != nil {
		suggestions = list
	}
	return suggestions
}

func (s *Service) recordFailure(ctx context.Context, req Request, searchType string, elapsed time.Duration, err error) {
	s.logger.Errorf("search %q failed: %v", req.Query, err)
	if s.recorder == nil {
		return
	}
	s.recorder.Record(context.WithoutCancel(ctx), core.HistoryEntry{
		Query:         req.Query,
		CandidateID:   req.CandidateID,
		SearchTimeMs:  elapsed.Milliseconds(),
		SearchType:    searchType,
		Outcome:       core.OutcomeFailure,
		FailureReason: err.Error(),
	})
}
