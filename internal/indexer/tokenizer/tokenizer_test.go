package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeKeepsEveryWord(t *testing.T) {
	tokens := Tokenize("To be, or NOT to be: an indexed b!")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
		assert.Equal(t, i, tok.Position)
	}
	assert.Equal(t, []string{"to", "be", "or", "not", "to", "be", "an", "indexed", "b"}, terms)
}

func TestTokenizeUnderscoreWords(t *testing.T) {
	tokens := Tokenize("this_is_a_word")
	if assert.Len(t, tokens, 1) {
		assert.Equal(t, "this_is_a_word", tokens[0].Term)
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"indexed":   "index",
		"indexing":  "index",
		"documents": "document",
		"why":       "why",
		"a":         "a",
		"ponies":    "pony",
	}
	for word, want := range tests {
		assert.Equal(t, want, Stem(word), word)
	}
}

func TestWordsSplitsPunctuation(t *testing.T) {
	assert.Equal(t, []string{"http", "example", "com"}, Words("http://Example.com"))
	assert.Empty(t, Words("  ,;  "))
}
