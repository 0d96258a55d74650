// Package query parses free-text search strings into structured queries.
//
// Grammar:
//
//	golang kubernetes        required terms (implicit AND)
//	"site reliability"       exact phrase, matched contiguously and in order
//	-junior                  excluded term
//	-"project manager"       every word of the phrase is excluded
//
// An unterminated quote turns the rest of the string into a phrase.
package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rubiojr/cvsearch/pkg/analysis"
	"github.com/rubiojr/cvsearch/pkg/core"
)

// DefaultMaxLength is the longest accepted query, in characters.
const DefaultMaxLength = 500

// Query is a parsed search query. All words are normalized.
type Query struct {
	// Terms must each be found as whole words. Stop-words and words shorter
	// than the analyzer's minimum term length never appear here.
	Terms []string

	// Phrases are word sequences matched contiguously and in order.
	Phrases [][]string

	// Excluded words penalize any document containing them.
	Excluded []string

	raw string
}

// Options configures Parse.
type Options struct {
	// MaxLength bounds the raw query length in characters. Zero means
	// DefaultMaxLength.
	MaxLength int

	// Analyzer normalizes words. Nil means analysis.Default().
	Analyzer *analysis.Analyzer
}

type segment struct {
	text    string
	quoted  bool
	negated bool
}

// Parse turns raw into a Query. It fails with core.ErrInvalidQuery when raw
// is blank, too long, or leaves no required term or phrase.
func Parse(raw string, opts Options) (*Query, error) {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	an := opts.Analyzer
	if an == nil {
		an = analysis.Default()
	}

	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: query is empty", core.ErrInvalidQuery)
	}
	if n := utf8.RuneCountInString(raw); n > maxLength {
		return nil, fmt.Errorf("%w: query is %d characters long, the maximum is %d", core.ErrInvalidQuery, n, maxLength)
	}

	q := &Query{raw: raw}
	terms := newSet()
	excluded := newSet()
	phrases := newSet()

	for _, seg := range split(raw) {
		switch {
		case seg.quoted && seg.negated:
			for _, w := range an.Normalize(seg.text) {
				excluded.add(w)
			}
		case seg.quoted:
			words := an.Normalize(seg.text)
			if !hasSearchableWord(an, words) {
				continue
			}
			if phrases.add(strings.Join(words, " ")) {
				q.Phrases = append(q.Phrases, words)
			}
		case strings.HasPrefix(seg.text, "-"):
			for _, w := range an.Normalize(seg.text[1:]) {
				excluded.add(w)
			}
		default:
			for _, w := range an.Normalize(seg.text) {
				if an.Keep(w) {
					terms.add(w)
				}
			}
		}
	}

	q.Terms = terms.items
	q.Excluded = excluded.items

	if len(q.Terms) == 0 && len(q.Phrases) == 0 {
		return nil, fmt.Errorf("%w: query must contain at least one valid search term", core.ErrInvalidQuery)
	}
	return q, nil
}

// split breaks raw into whitespace separated segments, keeping quoted spans
// whole. A lone "-" directly before a quote negates that quoted span.
func split(raw string) []segment {
	var (
		segs     []segment
		buf      strings.Builder
		inQuote  bool
		negQuote bool
	)

	flushBare := func() {
		if buf.Len() > 0 {
			segs = append(segs, segment{text: buf.String()})
			buf.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case inQuote:
			if r == '"' {
				segs = append(segs, segment{text: buf.String(), quoted: true, negated: negQuote})
				buf.Reset()
				inQuote, negQuote = false, false
				continue
			}
			buf.WriteRune(r)
		case r == '"':
			if buf.String() == "-" {
				negQuote = true
				buf.Reset()
			} else {
				flushBare()
			}
			inQuote = true
		case unicode.IsSpace(r):
			flushBare()
		default:
			buf.WriteRune(r)
		}
	}

	if inQuote {
		segs = append(segs, segment{text: buf.String(), quoted: true, negated: negQuote})
	} else {
		flushBare()
	}
	return segs
}

func hasSearchableWord(an *analysis.Analyzer, words []string) bool {
	for _, w := range words {
		if an.Keep(w) {
			return true
		}
	}
	return false
}

// Raw returns the string the query was parsed from.
func (q *Query) Raw() string {
	return q.raw
}

// IsPhraseSearch reports whether the query carries at least one phrase.
func (q *Query) IsPhraseSearch() bool {
	return len(q.Phrases) > 0
}

// Words returns the distinct required words of the query: terms first, then
// the searchable words of each phrase.
func (q *Query) Words() []string {
	s := newSet()
	for _, t := range q.Terms {
		s.add(t)
	}
	for _, p := range q.Phrases {
		for _, w := range p {
			s.add(w)
		}
	}
	return s.items
}

// String renders the query in canonical form.
func (q *Query) String() string {
	parts := make([]string, 0, len(q.Terms)+len(q.Phrases)+len(q.Excluded))
	parts = append(parts, q.Terms...)
	for _, p := range q.Phrases {
		parts = append(parts, `"`+strings.Join(p, " ")+`"`)
	}
	for _, e := range q.Excluded {
		parts = append(parts, "-"+e)
	}
	return strings.Join(parts, " ")
}

// set is an insertion-ordered string set.
type set struct {
	seen  map[string]struct{}
	items []string
}

func newSet() *set {
	return &set{seen: make(map[string]struct{})}
}

func (s *set) add(v string) bool {
	if v == "" {
		return false
	}
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}
