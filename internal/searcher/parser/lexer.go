package parser

import (
	"regexp"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokWord
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	}
	return "term"
}

// token is a keyword, a parenthesis, or a term. A term carries its field
// (empty for free text) and whether its value was quoted.
type token struct {
	kind   tokenKind
	field  string
	value  string
	quoted bool
	pos    int
}

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type lexer struct {
	input []rune
	pos   int
}

func lex(s string) ([]token, error) {
	l := &lexer{input: []rune(s)}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: start}, nil
	}
	switch l.input[l.pos] {
	case '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case '"':
		value, err := l.quoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokWord, value: value, quoted: true, pos: start}, nil
	}

	for l.pos < len(l.input) && !l.boundary(l.input[l.pos]) {
		if l.input[l.pos] == ':' {
			field := string(l.input[start:l.pos])
			if fieldNameRe.MatchString(field) {
				l.pos++
				return l.fieldValue(field, start)
			}
		}
		l.pos++
	}
	word := string(l.input[start:l.pos])
	switch word {
	case "AND":
		return token{kind: tokAnd, pos: start}, nil
	case "OR":
		return token{kind: tokOr, pos: start}, nil
	case "NOT":
		return token{kind: tokNot, pos: start}, nil
	}
	return token{kind: tokWord, value: word, pos: start}, nil
}

func (l *lexer) fieldValue(field string, start int) (token, error) {
	if l.pos < len(l.input) && l.input[l.pos] == '"' {
		value, err := l.quoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokWord, field: field, value: value, quoted: true, pos: start}, nil
	}
	valueStart := l.pos
	for l.pos < len(l.input) && !l.boundary(l.input[l.pos]) {
		l.pos++
	}
	value := string(l.input[valueStart:l.pos])
	if value == "" {
		return token{}, apperrors.MalformedQuery("field %q has no value at position %d", field, start)
	}
	return token{kind: tokWord, field: field, value: value, pos: start}, nil
}

func (l *lexer) quoted() (string, error) {
	start := l.pos
	for i := start + 1; i < len(l.input); i++ {
		if l.input[i] == '"' {
			l.pos = i + 1
			return string(l.input[start+1 : i]), nil
		}
	}
	return "", apperrors.MalformedQuery("unterminated quote at position %d", start)
}

func (l *lexer) boundary(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')'
}
