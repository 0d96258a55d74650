// Package analysis turns raw text into normalized word tokens.
//
// The same Analyzer is used on both sides of a search: the query parser
// filters its output through the stop-word list and minimum term length,
// while document scoring keeps every token so phrase contiguity can be
// checked against the original word sequence.
package analysis

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMinTermLength is the shortest query term, in characters, that is
// kept as a required term.
const DefaultMinTermLength = 2

// DefaultStopWords is the English stop-word list applied to query terms.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "up", "about", "into", "through", "during",
	"before", "after", "above", "below", "between", "among", "this", "that",
	"these", "those", "i", "me", "my", "myself", "we", "our", "ours", "ourselves",
	"you", "your", "yours", "yourself", "yourselves", "he", "him", "his", "himself",
	"she", "her", "hers", "herself", "it", "its", "itself", "they", "them", "their",
	"theirs", "themselves", "what", "which", "who", "whom", "whose", "when", "where",
	"why", "how", "all", "any", "both", "each", "few", "more", "most", "other",
	"some", "such", "no", "nor", "not", "only", "own", "same", "so", "than",
	"too", "very", "can", "will", "just", "should", "now",
}

// Token is a normalized word and its byte span [Start, End) in the text it
// was read from.
type Token struct {
	Text  string
	Start int
	End   int
}

// Analyzer tokenizes text and filters query terms. It holds no per-call
// state and is safe for concurrent use.
type Analyzer struct {
	stopWords     map[string]struct{}
	minTermLength int
}

// New creates an analyzer. Stop-words are normalized the same way as tokens.
// A minTermLength below 1 is treated as 1.
func New(stopWords []string, minTermLength int) *Analyzer {
	if minTermLength < 1 {
		minTermLength = 1
	}
	a := &Analyzer{
		stopWords:     make(map[string]struct{}, len(stopWords)),
		minTermLength: minTermLength,
	}
	lower := cases.Lower(language.Und)
	for _, w := range stopWords {
		a.stopWords[lower.String(w)] = struct{}{}
	}
	return a
}

// Default returns an analyzer with DefaultStopWords and DefaultMinTermLength.
func Default() *Analyzer {
	return New(DefaultStopWords, DefaultMinTermLength)
}

// MinTermLength returns the configured minimum query term length.
func (a *Analyzer) MinTermLength() int {
	return a.minTermLength
}

// Tokenize splits text on every run of characters that are neither letters
// nor digits and lower-cases each word. Nothing is filtered out.
func (a *Analyzer) Tokenize(text string) []Token {
	if text == "" {
		return nil
	}

	// A Caser carries transform state, so each call gets its own.
	lower := cases.Lower(language.Und)

	var tokens []Token
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: lower.String(text[start:i]), Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: lower.String(text[start:]), Start: start, End: len(text)})
	}
	return tokens
}

// Normalize returns the token texts of text, unfiltered.
func (a *Analyzer) Normalize(text string) []string {
	tokens := a.Tokenize(text)
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}
	return words
}

// Terms returns the normalized words of text that survive the stop-word and
// minimum length filters.
func (a *Analyzer) Terms(text string) []string {
	var terms []string
	for _, t := range a.Tokenize(text) {
		if a.Keep(t.Text) {
			terms = append(terms, t.Text)
		}
	}
	return terms
}

// Keep reports whether a normalized word qualifies as a query term.
func (a *Analyzer) Keep(word string) bool {
	if utf8.RuneCountInString(word) < a.minTermLength {
		return false
	}
	return !a.IsStopWord(word)
}

// IsStopWord reports whether the normalized word is a stop-word.
func (a *Analyzer) IsStopWord(word string) bool {
	_, ok := a.stopWords[word]
	return ok
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
