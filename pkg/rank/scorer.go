// Package rank scores documents against a parsed query and extracts
// highlighted snippets around the matches.
//
// Both Scorer and Highlighter are pure: they read the query and the document
// text and never fail. Malformed or empty text simply produces no match.
package rank

import (
	"math"

	"github.com/rubiojr/cvsearch/pkg/analysis"
	"github.com/rubiojr/cvsearch/pkg/query"
)

// MaxScore is the upper bound of a relevance score.
const MaxScore = 100.0

// Weights are the tunable constants of the relevance function.
type Weights struct {
	// BaseTermWeight is the contribution of one term occurrence.
	BaseTermWeight float64

	// PhraseMultiplier scales BaseTermWeight for one phrase occurrence.
	PhraseMultiplier float64

	// ExclusionPenalty multiplies the score once when any excluded word is
	// present.
	ExclusionPenalty float64

	// DampingConstant is added to the token count before taking its log for
	// length normalization.
	DampingConstant float64
}

// DefaultWeights returns the stock relevance constants.
func DefaultWeights() Weights {
	return Weights{
		BaseTermWeight:   10,
		PhraseMultiplier: 10,
		ExclusionPenalty: 0.1,
		DampingConstant:  1.0,
	}
}

// Score is the outcome of scoring one document.
type Score struct {
	// Value is the relevance in [0, MaxScore], rounded to two decimals.
	Value float64

	// MatchCount is the number of term plus phrase occurrences, before
	// normalization and penalties.
	MatchCount int

	// Matched is false when no required term or phrase occurs at all. Such
	// documents are not search results.
	Matched bool
}

// Scorer computes relevance scores.
type Scorer struct {
	analyzer *analysis.Analyzer
	weights  Weights
}

// NewScorer creates a scorer. A nil analyzer means analysis.Default().
func NewScorer(an *analysis.Analyzer, w Weights) *Scorer {
	if an == nil {
		an = analysis.Default()
	}
	return &Scorer{analyzer: an, weights: w}
}

// Score rates text against q. lengthTokens is the document length used for
// normalization; zero or less means the token count of text.
func (s *Scorer) Score(q *query.Query, text string, lengthTokens int) Score {
	words := tokenTexts(s.analyzer.Tokenize(text))
	if len(words) == 0 || q == nil {
		return Score{}
	}
	if lengthTokens <= 0 {
		lengthTokens = len(words)
	}

	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}

	var raw float64
	matches := 0

	for _, phrase := range q.Phrases {
		n := len(phraseStarts(words, phrase))
		raw += float64(n) * s.weights.PhraseMultiplier * s.weights.BaseTermWeight
		matches += n
	}
	for _, term := range q.Terms {
		n := freq[term]
		raw += float64(n) * s.weights.BaseTermWeight
		matches += n
	}

	if matches == 0 {
		return Score{}
	}

	// Clamp before penalizing so saturated documents still lose rank when
	// they contain an excluded word.
	value := clamp(raw/s.lengthNormalizer(lengthTokens), 0, MaxScore)

	for _, ex := range q.Excluded {
		if freq[ex] > 0 {
			value *= s.weights.ExclusionPenalty
			break
		}
	}

	return Score{
		Value:      round2(value),
		MatchCount: matches,
		Matched:    true,
	}
}

// lengthNormalizer grows with the document length. It never drops below 1
// so very short documents are not boosted.
func (s *Scorer) lengthNormalizer(lengthTokens int) float64 {
	n := math.Log(float64(lengthTokens) + s.weights.DampingConstant)
	if n < 1 || math.IsNaN(n) {
		return 1
	}
	return n
}

// phraseStarts returns the token indexes where phrase occurs in words.
// Occurrences do not overlap.
func phraseStarts(words, phrase []string) []int {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return nil
	}
	var starts []int
	for i := 0; i+len(phrase) <= len(words); {
		if equalAt(words, i, phrase) {
			starts = append(starts, i)
			i += len(phrase)
			continue
		}
		i++
	}
	return starts
}

func equalAt(words []string, i int, phrase []string) bool {
	for j, w := range phrase {
		if words[i+j] != w {
			return false
		}
	}
	return true
}

func tokenTexts(tokens []analysis.Token) []string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}
	return words
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
