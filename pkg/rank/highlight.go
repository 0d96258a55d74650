package rank

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rubiojr/cvsearch/pkg/analysis"
	"github.com/rubiojr/cvsearch/pkg/query"
)

// Ellipsis marks a snippet that does not reach the document boundary.
const Ellipsis = "..."

// Highlight is a snippet of document text around one or more matches.
type Highlight struct {
	Text string `json:"text"`

	// StartPosition is the character offset of the snippet, without its
	// leading ellipsis, in the original document text.
	StartPosition int `json:"start_position"`
}

// HighlightOptions tunes snippet extraction.
type HighlightOptions struct {
	// MergeDistance is the largest gap, in characters, between two windows
	// that are still merged into one snippet.
	MergeDistance int

	// MaxHighlights caps the number of snippets per document.
	MaxHighlights int
}

// DefaultHighlightOptions returns the stock snippet settings.
func DefaultHighlightOptions() HighlightOptions {
	return HighlightOptions{MergeDistance: 50, MaxHighlights: 3}
}

// Highlighter extracts snippets around query matches.
type Highlighter struct {
	analyzer *analysis.Analyzer
	opts     HighlightOptions
}

// NewHighlighter creates a highlighter. A nil analyzer means
// analysis.Default(); a non-positive MaxHighlights means the default of 3.
func NewHighlighter(an *analysis.Analyzer, opts HighlightOptions) *Highlighter {
	if an == nil {
		an = analysis.Default()
	}
	if opts.MaxHighlights <= 0 {
		opts.MaxHighlights = DefaultHighlightOptions().MaxHighlights
	}
	if opts.MergeDistance < 0 {
		opts.MergeDistance = 0
	}
	return &Highlighter{analyzer: an, opts: opts}
}

// span is a byte range [start, end) of the original text.
type span struct {
	start, end int
}

// window is a snippet span and the range its matches cover.
type window struct {
	span
	match span
}

// Highlight returns up to MaxHighlights snippets of text in reading order.
// windowLength is the context, in characters, shared between both sides of
// each match.
func (h *Highlighter) Highlight(q *query.Query, text string, windowLength int) []Highlight {
	if q == nil {
		return nil
	}
	spans := h.matchSpans(q, text)
	if len(spans) == 0 {
		return nil
	}

	half := windowLength / 2
	if half < 0 {
		half = 0
	}

	var windows []window
	for _, sp := range spans {
		w := window{
			span:  span{start: backRunes(text, sp.start, half), end: forwardRunes(text, sp.end, half)},
			match: sp,
		}
		if n := len(windows); n > 0 && w.start <= forwardRunes(text, windows[n-1].end, h.opts.MergeDistance) {
			last := &windows[n-1]
			if w.end > last.end {
				last.end = w.end
			}
			if sp.end > last.match.end {
				last.match.end = sp.end
			}
			continue
		}
		windows = append(windows, w)
	}

	if len(windows) > h.opts.MaxHighlights {
		windows = windows[:h.opts.MaxHighlights]
	}

	highlights := make([]Highlight, 0, len(windows))
	for _, w := range windows {
		start := snapStart(text, w.start, w.match.start, half)
		end := snapEnd(text, w.end, w.match.end, half)

		chunk := text[start:end]
		body := strings.TrimLeftFunc(chunk, unicode.IsSpace)
		bodyStart := start + len(chunk) - len(body)
		body = strings.TrimRightFunc(body, unicode.IsSpace)
		if body == "" {
			continue
		}

		if start > 0 {
			body = Ellipsis + body
		}
		if end < len(text) {
			body += Ellipsis
		}
		highlights = append(highlights, Highlight{
			Text:          body,
			StartPosition: utf8.RuneCountInString(text[:bodyStart]),
		})
	}
	return highlights
}

// matchSpans locates every phrase and term occurrence in text, sorted by
// position.
func (h *Highlighter) matchSpans(q *query.Query, text string) []span {
	tokens := h.analyzer.Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	words := tokenTexts(tokens)

	var spans []span
	for _, phrase := range q.Phrases {
		for _, i := range phraseStarts(words, phrase) {
			spans = append(spans, span{start: tokens[i].Start, end: tokens[i+len(phrase)-1].End})
		}
	}

	terms := make(map[string]struct{}, len(q.Terms))
	for _, t := range q.Terms {
		terms[t] = struct{}{}
	}
	for _, tok := range tokens {
		if _, ok := terms[tok.Text]; ok {
			spans = append(spans, span{start: tok.Start, end: tok.End})
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})
	return spans
}

// backRunes moves pos back by n characters, stopping at 0.
func backRunes(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

// forwardRunes moves pos forward by n characters, stopping at len(text).
func forwardRunes(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}

// snapStart moves pos to the start of a word. It looks back at most limit
// characters for whitespace, then forward as far as matchStart, and keeps
// pos when neither finds any.
func snapStart(text string, pos, matchStart, limit int) int {
	p := pos
	for i := 0; ; i++ {
		if p == 0 {
			return 0
		}
		r, size := utf8.DecodeLastRuneInString(text[:p])
		if unicode.IsSpace(r) {
			return p
		}
		if i == limit {
			break
		}
		p -= size
	}

	for p = pos; p < matchStart; {
		r, size := utf8.DecodeRuneInString(text[p:])
		p += size
		if unicode.IsSpace(r) {
			return p
		}
	}
	return pos
}

// snapEnd moves pos to the end of a word. It looks ahead at most limit
// characters for whitespace, then back as far as matchEnd, and keeps pos
// when neither finds any.
func snapEnd(text string, pos, matchEnd, limit int) int {
	p := pos
	for i := 0; ; i++ {
		if p >= len(text) {
			return len(text)
		}
		r, size := utf8.DecodeRuneInString(text[p:])
		if unicode.IsSpace(r) {
			return p
		}
		if i == limit {
			break
		}
		p += size
	}

	for p = pos; p > matchEnd; {
		r, size := utf8.DecodeLastRuneInString(text[:p])
		p -= size
		if unicode.IsSpace(r) {
			return p
		}
	}
	return pos
}
