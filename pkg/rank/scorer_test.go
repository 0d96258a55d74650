package rank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/cvsearch/pkg/query"
)

func mustParse(t *testing.T, raw string) *query.Query {
	t.Helper()
	q, err := query.Parse(raw, query.Options{})
	require.NoError(t, err)
	return q
}

func TestScoreExclusionOutranksFrequency(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	q := mustParse(t, "python -django")

	a := s.Score(q, "Experienced python developer. Built python services and python tooling.", 0)
	b := s.Score(q, "python python python python python with some django experience", 0)

	require.True(t, a.Matched)
	require.True(t, b.Matched)
	assert.Equal(t, 3, a.MatchCount)
	assert.Equal(t, 5, b.MatchCount)
	assert.Greater(t, a.Value, b.Value)
}

func TestScorePhraseDominates(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	q := mustParse(t, `"full stack" javascript -junior`)
	doc := "Senior full stack engineer. Javascript and TypeScript daily; javascript tooling."

	got := s.Score(q, doc, 0)
	require.True(t, got.Matched)
	assert.Equal(t, 3, got.MatchCount)

	phraseOnly := s.Score(mustParse(t, `"full stack"`), doc, 0)
	termOnly := s.Score(mustParse(t, "javascript"), doc, 0)
	assert.Greater(t, phraseOnly.Value, termOnly.Value)
	assert.InDelta(t, phraseOnly.Value+termOnly.Value, got.Value, 0.02)
}

func TestScorePhraseBreaksEqualTermCounts(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	q := mustParse(t, `"full stack" javascript`)

	withPhrase := s.Score(q, "full stack javascript developer building web apps", 0)
	scattered := s.Score(q, "stack javascript full developer building web apps", 0)

	require.True(t, withPhrase.Matched)
	require.True(t, scattered.Matched)
	assert.Greater(t, withPhrase.Value, scattered.Value)
}

func TestScorePresenceGate(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())

	tests := []struct {
		name string
		raw  string
		doc  string
	}{
		{name: "empty document", raw: "golang", doc: ""},
		{name: "punctuation only", raw: "golang", doc: "... --- !!!"},
		{name: "no required word", raw: "golang", doc: "java spring hibernate"},
		{name: "substring is not a word match", raw: "java", doc: "javascript developer"},
		{name: "phrase out of order", raw: `"machine learning"`, doc: "learning about machine tools"},
		{name: "excluded only present", raw: "golang -java", doc: "java developer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(mustParse(t, tt.raw), tt.doc, 0)
			assert.False(t, got.Matched)
			assert.Zero(t, got.Value)
			assert.Zero(t, got.MatchCount)
		})
	}
}

func TestScoreBounds(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())

	docs := []string{
		"go",
		strings.Repeat("go ", 50),
		"go developer with a long history " + strings.Repeat("of unrelated words ", 2000),
		"Go, GO, go; go! (go)",
	}
	queries := []string{"go", `"go go"`, "go -developer", `go "go developer"`}

	for _, raw := range queries {
		q := mustParse(t, raw)
		for _, doc := range docs {
			got := s.Score(q, doc, 0)
			assert.GreaterOrEqual(t, got.Value, 0.0)
			assert.LessOrEqual(t, got.Value, MaxScore)
			if got.Matched {
				assert.Positive(t, got.MatchCount)
			}
		}
	}

	clamped := s.Score(mustParse(t, `"go go"`), strings.Repeat("go ", 10), 0)
	assert.Equal(t, MaxScore, clamped.Value)
	assert.Equal(t, 5, clamped.MatchCount)
}

func TestScoreExclusionMonotonic(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	docs := []string{
		"golang engineer who also wrote some java",
		"golang golang golang java java",
		"java",
		"golang and kubernetes operator author",
	}

	for _, doc := range docs {
		base := s.Score(mustParse(t, "golang kubernetes"), doc, 0)
		penalized := s.Score(mustParse(t, "golang kubernetes -java"), doc, 0)

		assert.LessOrEqual(t, penalized.Value, base.Value, doc)
		assert.Equal(t, base.MatchCount, penalized.MatchCount, doc)
		if base.Value > 0 && strings.Contains(doc, "java") {
			assert.Less(t, penalized.Value, base.Value, doc)
		}
	}
}

func TestScoreExclusionOnSaturatedDocument(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	doc := strings.Repeat("full stack ", 60) + "junior"

	base := s.Score(mustParse(t, `"full stack"`), doc, 0)
	penalized := s.Score(mustParse(t, `"full stack" -junior`), doc, 0)

	require.Equal(t, MaxScore, base.Value)
	assert.Less(t, penalized.Value, base.Value)
	assert.InDelta(t, MaxScore*DefaultWeights().ExclusionPenalty, penalized.Value, 0.001)
	assert.Equal(t, base.MatchCount, penalized.MatchCount)
}

func TestScoreLengthNormalization(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	q := mustParse(t, "terraform")

	short := s.Score(q, "terraform modules for aws", 0)
	long := s.Score(q, "terraform modules for aws "+strings.Repeat("and other things ", 200), 0)
	assert.Greater(t, short.Value, long.Value)

	explicit := s.Score(q, "terraform modules for aws", 1000)
	assert.Less(t, explicit.Value, short.Value)
}

func TestScoreIsDeterministic(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	q := mustParse(t, `rust "systems programming" -intern`)
	doc := "Rust systems programming, embedded rust, systems programming talks."

	first := s.Score(q, doc, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, s.Score(q, doc, 0))
	}
}

func TestScoreNilQuery(t *testing.T) {
	s := NewScorer(nil, DefaultWeights())
	assert.Equal(t, Score{}, s.Score(nil, "anything", 0))
}

func TestPhraseStarts(t *testing.T) {
	words := []string{"go", "go", "go", "rust", "go", "go"}

	assert.Equal(t, []int{0, 4}, phraseStarts(words, []string{"go", "go"}))
	assert.Equal(t, []int{2}, phraseStarts(words, []string{"go", "rust"}))
	assert.Nil(t, phraseStarts(words, []string{"rust", "rust"}))
	assert.Nil(t, phraseStarts(words, nil))
	assert.Nil(t, phraseStarts([]string{"go"}, []string{"go", "go"}))
}
