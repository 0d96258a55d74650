package core

import (
	"strings"
	"time"
)

// Candidate is the owner of one or more documents.
type Candidate struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// Name returns the display name used in search results.
func (c Candidate) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Document is a read-only snapshot of a candidate document and its extracted
// text. An empty ExtractedText means the document was never extracted and it
// takes no part in scoring.
type Document struct {
	ID            int64
	CandidateID   int64
	CandidateName string
	Filename      string
	ExtractedText string
	UploadedAt    time.Time
	ExtractedAt   *time.Time
	FileSize      *int64
}

// HasText reports whether the document carries extracted text.
func (d Document) HasText() bool {
	return d.ExtractedText != ""
}

// DocumentFilter narrows a document fetch.
type DocumentFilter struct {
	// CandidateID restricts the fetch to one candidate when set.
	CandidateID *int64

	// ExtractedOnly drops documents without extracted text.
	ExtractedOnly bool
}
