package search

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/rubiojr/cvsearch/pkg/core"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected Request
		hasError bool
	}{
		{
			name:  "basic query",
			query: "q=golang&limit=50&offset=100",
			expected: Request{
				Query:             "golang",
				Limit:             50,
				Offset:            100,
				IncludeHighlights: true,
				ExtractedOnly:     true,
			},
		},
		{
			name:  "defaults when no params",
			query: "",
			expected: Request{
				IncludeHighlights: true,
				ExtractedOnly:     true,
			},
		},
		{
			name:  "with candidate and highlight options",
			query: "q=%22site+reliability%22&candidate_id=7&include_highlights=false&highlight_length=300&extracted_only=0",
			expected: Request{
				Query:           `"site reliability"`,
				CandidateID:     int64Ptr(7),
				HighlightLength: 300,
			},
		},
		{
			name:     "invalid limit returns error",
			query:    "q=test&limit=lots",
			hasError: true,
		},
		{
			name:     "explicit zero limit returns error",
			query:    "q=test&limit=0",
			hasError: true,
		},
		{
			name:     "explicit zero highlight length returns error",
			query:    "q=test&highlight_length=0",
			hasError: true,
		},
		{
			name:  "explicit zero offset is the first page",
			query: "q=test&offset=0",
			expected: Request{
				Query:             "test",
				IncludeHighlights: true,
				ExtractedOnly:     true,
			},
		},
		{
			name:     "invalid candidate returns error",
			query:    "q=test&candidate_id=abc",
			hasError: true,
		},
		{
			name:     "invalid boolean returns error",
			query:    "q=test&include_highlights=maybe",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("Failed to parse query string: %v", err)
			}

			req, err := ParseRequest(values)

			if tt.hasError {
				if !errors.Is(err, core.ErrInvalidRequest) {
					t.Errorf("Expected ErrInvalidRequest, got %v", err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if req.Query != tt.expected.Query {
				t.Errorf("Query: expected %q, got %q", tt.expected.Query, req.Query)
			}
			if req.Limit != tt.expected.Limit {
				t.Errorf("Limit: expected %d, got %d", tt.expected.Limit, req.Limit)
			}
			if req.Offset != tt.expected.Offset {
				t.Errorf("Offset: expected %d, got %d", tt.expected.Offset, req.Offset)
			}
			if req.HighlightLength != tt.expected.HighlightLength {
				t.Errorf("HighlightLength: expected %d, got %d", tt.expected.HighlightLength, req.HighlightLength)
			}
			if req.IncludeHighlights != tt.expected.IncludeHighlights {
				t.Errorf("IncludeHighlights: expected %v, got %v", tt.expected.IncludeHighlights, req.IncludeHighlights)
			}
			if req.ExtractedOnly != tt.expected.ExtractedOnly {
				t.Errorf("ExtractedOnly: expected %v, got %v", tt.expected.ExtractedOnly, req.ExtractedOnly)
			}
			if !idsEqual(req.CandidateID, tt.expected.CandidateID) {
				t.Errorf("CandidateID: expected %v, got %v", tt.expected.CandidateID, req.CandidateID)
			}
		})
	}
}

func TestRequestUnmarshalJSON(t *testing.T) {
	t.Run("absent fields keep defaults", func(t *testing.T) {
		req := NewRequest("")
		if err := json.Unmarshal([]byte(`{"query":"golang","offset":20}`), &req); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.Query != "golang" || req.Offset != 20 {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Limit != 0 || req.HighlightLength != 0 {
			t.Errorf("expected configured defaults, got limit %d highlight_length %d", req.Limit, req.HighlightLength)
		}
		if !req.IncludeHighlights || !req.ExtractedOnly {
			t.Errorf("expected NewRequest booleans to survive, got %+v", req)
		}
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		req := NewRequest("")
		body := `{"query":"rust","limit":5,"highlight_length":80,"include_highlights":false}`
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.Limit != 5 || req.HighlightLength != 80 || req.IncludeHighlights {
			t.Errorf("unexpected request %+v", req)
		}
	})

	for _, body := range []string{
		`{"query":"rust","limit":0}`,
		`{"query":"rust","highlight_length":0}`,
	} {
		t.Run(body, func(t *testing.T) {
			req := NewRequest("")
			err := json.Unmarshal([]byte(body), &req)
			if !errors.Is(err, core.ErrInvalidRequest) {
				t.Errorf("Expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestDownloadURL(t *testing.T) {
	if got := DownloadURL(3, 42); got != "/api/candidates/3/files/42/download" {
		t.Errorf("unexpected download URL %q", got)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func idsEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
