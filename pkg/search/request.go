package search

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/rank"
)

// Request describes one search invocation.
type Request struct {
	// Query is the raw query string, see package query for the grammar.
	Query string `json:"query"`

	// CandidateID restricts the search to one candidate's documents.
	CandidateID *int64 `json:"candidate_id,omitempty"`

	// Limit is the page size. Zero means the configured default; wire
	// requests that send an explicit zero are rejected instead.
	Limit int `json:"limit,omitempty"`

	// Offset is the number of ranked results to skip.
	Offset int `json:"offset"`

	// IncludeHighlights turns on snippet extraction for the returned page.
	IncludeHighlights bool `json:"include_highlights"`

	// HighlightLength is the snippet context in characters. Zero means the
	// configured default, as for Limit.
	HighlightLength int `json:"highlight_length,omitempty"`

	// ExtractedOnly skips documents that were never extracted.
	ExtractedOnly bool `json:"extracted_only"`
}

// NewRequest returns a request for query with highlights on and extracted
// documents only, the defaults of the search API.
func NewRequest(query string) Request {
	return Request{
		Query:             query,
		IncludeHighlights: true,
		ExtractedOnly:     true,
	}
}

// UnmarshalJSON decodes a request body. Absent fields keep their current
// value; an explicit zero limit or highlight_length fails with
// core.ErrInvalidRequest.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	body := struct {
		*plain
		Limit           *int `json:"limit"`
		HighlightLength *int `json:"highlight_length"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	if body.Limit != nil {
		if err := rejectZero("limit", *body.Limit); err != nil {
			return err
		}
		r.Limit = *body.Limit
	}
	if body.HighlightLength != nil {
		if err := rejectZero("highlight_length", *body.HighlightLength); err != nil {
			return err
		}
		r.HighlightLength = *body.HighlightLength
	}
	return nil
}

func rejectZero(name string, n int) error {
	if n == 0 {
		return fmt.Errorf("%w: %s must not be zero, omit it for the default", core.ErrInvalidRequest, name)
	}
	return nil
}

// Result is one ranked document.
type Result struct {
	DocumentID     int64            `json:"document_id"`
	CandidateID    int64            `json:"candidate_id"`
	CandidateName  string           `json:"candidate_name"`
	Filename       string           `json:"original_filename"`
	RelevanceScore float64          `json:"relevance_score"`
	MatchCount     int              `json:"match_count"`
	Highlights     []rank.Highlight `json:"highlights"`
	UploadedAt     time.Time        `json:"upload_date"`
	ExtractedAt    *time.Time       `json:"extraction_date"`
	DownloadURL    string           `json:"download_url"`
	FileSize       *int64           `json:"file_size"`
}

// Response is a ranked, paginated result page.
type Response struct {
	Query             string   `json:"query"`
	CandidateID       *int64   `json:"candidate_id"`
	TotalResults      int      `json:"total_results"`
	SearchTimeMs      int64    `json:"search_time_ms"`
	Page              int      `json:"page"`
	PerPage           int      `json:"per_page"`
	TotalPages        int      `json:"total_pages"`
	HasNext           bool     `json:"has_next"`
	HasPrevious       bool     `json:"has_previous"`
	Results           []Result `json:"results"`
	SearchSuggestions []string `json:"search_suggestions"`
}

// QuickResult is the flattened result of QuickSearch.
type QuickResult struct {
	DocumentID     int64   `json:"document_id"`
	CandidateName  string  `json:"candidate_name"`
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
	MatchCount     int     `json:"match_count"`
}

// DownloadURL is the API path serving the original file of a document.
func DownloadURL(candidateID, documentID int64) string {
	return fmt.Sprintf("/api/candidates/%d/files/%d/download", candidateID, documentID)
}

// ParseRequest builds a Request from HTTP query parameters.
//
// Supported parameters:
//   - q: search query
//   - candidate_id: restrict to one candidate
//   - limit, offset: pagination
//   - include_highlights: true/false, defaults to true
//   - highlight_length: snippet context in characters
//   - extracted_only: true/false, defaults to true
//
// Malformed numbers or booleans fail with core.ErrInvalidRequest, as does an
// explicit zero limit or highlight_length. Range checks happen in
// Service.Search.
func ParseRequest(params map[string][]string) (Request, error) {
	req := NewRequest(first(params, "q"))

	if v := first(params, "candidate_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: candidate_id %q is not an integer", core.ErrInvalidRequest, v)
		}
		req.CandidateID = &id
	}

	ints := []struct {
		name    string
		dst     *int
		nonZero bool
	}{
		{"limit", &req.Limit, true},
		{"offset", &req.Offset, false},
		{"highlight_length", &req.HighlightLength, true},
	}
	for _, p := range ints {
		v := first(params, p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: %s %q is not an integer", core.ErrInvalidRequest, p.name, v)
		}
		if p.nonZero {
			if err := rejectZero(p.name, n); err != nil {
				return req, err
			}
		}
		*p.dst = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"include_highlights", &req.IncludeHighlights},
		{"extracted_only", &req.ExtractedOnly},
	}
	for _, p := range bools {
		v := first(params, p.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: %s %q is not a boolean", core.ErrInvalidRequest, p.name, v)
		}
		*p.dst = b
	}

	return req, nil
}

func first(params map[string][]string, key string) string {
	if v := params[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
