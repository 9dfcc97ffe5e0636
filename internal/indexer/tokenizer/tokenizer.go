// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input, splits on anything that is not a letter, digit or
// underscore, and applies a simple suffix-based stemmer. Every word is
// kept: short words and common words are searchable.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single lower-cased word, its stem, and its position in
// the original text.
type Token struct {
	Term     string
	Stem     string
	Position int
}

// Tokenize breaks text into lower-cased Tokens in order of appearance.
func Tokenize(text string) []Token {
	words := Words(text)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Stem:     Stem(word),
			Position: pos,
		})
	}
	return tokens
}

// Words splits text into lower-cased words without stemming.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), isSeparator)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// Stem returns the stemmed form of an already lower-cased word.
func Stem(word string) string {
	return stem(word)
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"ss", "ss", 2},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
