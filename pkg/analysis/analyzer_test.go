package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	a := Default()

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "empty", text: "", expected: []string{}},
		{name: "punctuation only", text: "--- ... !!!", expected: []string{}},
		{name: "lower-cases", text: "Senior GoLang Engineer", expected: []string{"senior", "golang", "engineer"}},
		{name: "collapses separators", text: "node.js,  react;;vue", expected: []string{"node", "js", "react", "vue"}},
		{name: "keeps digits", text: "Python 3.11 in 2024", expected: []string{"python", "3", "11", "in", "2024"}},
		{name: "keeps stop-words", text: "the art of war", expected: []string{"the", "art", "of", "war"}},
		{name: "unicode letters", text: "Développeur Ünïcode Straße", expected: []string{"développeur", "ünïcode", "straße"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Normalize(tt.text)
			if len(tt.expected) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTokenizeOffsetsMapToOriginalText(t *testing.T) {
	a := Default()
	text := "  Worked at ACME-Corp (Zürich), shipping Go.  "

	tokens := a.Tokenize(text)
	require.NotEmpty(t, tokens)

	for _, tok := range tokens {
		require.True(t, tok.Start >= 0 && tok.End <= len(text) && tok.Start < tok.End)
		assert.Equal(t, tok.Text, a.Normalize(text[tok.Start:tok.End])[0])
	}
	assert.Equal(t, "zürich", tokens[4].Text)
	assert.Equal(t, "Zürich", text[tokens[4].Start:tokens[4].End])
}

func TestTerms(t *testing.T) {
	a := Default()

	assert.Equal(t, []string{"python", "developer"}, a.Terms("the Python developer"))
	assert.Empty(t, a.Terms("a I x"))
	assert.Equal(t, []string{"go"}, a.Terms("Go"))
}

func TestKeep(t *testing.T) {
	a := New([]string{"The", "AND"}, 3)

	assert.False(t, a.Keep("the"))
	assert.False(t, a.Keep("and"))
	assert.False(t, a.Keep("go"))
	assert.True(t, a.Keep("rust"))
	assert.True(t, a.Keep("été"))
	assert.Equal(t, 3, a.MinTermLength())
}

func TestNewClampsMinTermLength(t *testing.T) {
	a := New(nil, 0)
	assert.Equal(t, 1, a.MinTermLength())
	assert.True(t, a.Keep("x"))
}

func ExampleAnalyzer_Terms() {
	a := Default()
	fmt.Println(a.Terms("The senior Go/Rust engineer"))
	// Output: [senior go rust engineer]
}
