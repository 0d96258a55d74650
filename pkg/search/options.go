package search

import (
	"fmt"

	"github.com/rubiojr/cvsearch/pkg/analysis"
	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/query"
	"github.com/rubiojr/cvsearch/pkg/rank"
)

// Options holds every tunable of a search. A Service snapshots its Options
// once per request, so swapping them with SetOptions never affects a search
// already in flight.
type Options struct {
	MaxQueryLength int
	Analyzer       *analysis.Analyzer
	Weights        rank.Weights
	Highlight      rank.HighlightOptions

	DefaultLimit int
	MaxLimit     int
	QuickLimit   int

	DefaultHighlightLength int
	MinHighlightLength     int
	MaxHighlightLength     int

	// SuggestionLimit caps related queries per response. Zero disables
	// suggestions.
	SuggestionLimit int

	// ParallelThreshold is the corpus size from which documents are scored
	// on the worker pool, when the service has one.
	ParallelThreshold int
}

// DefaultOptions returns the stock search settings.
func DefaultOptions() Options {
	return Options{
		MaxQueryLength:         query.DefaultMaxLength,
		Analyzer:               analysis.Default(),
		Weights:                rank.DefaultWeights(),
		Highlight:              rank.DefaultHighlightOptions(),
		DefaultLimit:           20,
		MaxLimit:               100,
		QuickLimit:             10,
		DefaultHighlightLength: 150,
		MinHighlightLength:     50,
		MaxHighlightLength:     500,
		SuggestionLimit:        5,
		ParallelThreshold:      256,
	}
}

// prepare fills request defaults and validates pagination and highlight
// bounds.
func (o Options) prepare(req Request) (Request, error) {
	if req.Limit == 0 {
		req.Limit = o.DefaultLimit
	}
	if req.Limit < 1 || req.Limit > o.MaxLimit {
		return req, fmt.Errorf("%w: limit must be between 1 and %d, got %d", core.ErrInvalidRequest, o.MaxLimit, req.Limit)
	}
	if req.Offset < 0 {
		return req, fmt.Errorf("%w: offset must not be negative, got %d", core.ErrInvalidRequest, req.Offset)
	}

	if req.HighlightLength == 0 {
		req.HighlightLength = o.DefaultHighlightLength
	}
	if req.HighlightLength < o.MinHighlightLength || req.HighlightLength > o.MaxHighlightLength {
		return req, fmt.Errorf("%w: highlight_length must be between %d and %d, got %d",
			core.ErrInvalidRequest, o.MinHighlightLength, o.MaxHighlightLength, req.HighlightLength)
	}
	return req, nil
}
