// Package parser turns a query string into a query tree.
//
// Grammar, loosest binding first:
//
//	query   = or
//	or      = and { "OR" and }
//	and     = unary { ["AND"] unary }
//	unary   = "NOT" primary | primary
//	primary = "(" or ")" | term
//	term    = word | "phrase" | field ":" value
//	value   = word | "phrase" | prefix* | lo..hi | >v | >=v | <v | <=v
//
// Operators are recognised only in upper case. Parsing has no side
// effects: the lexicon is consulted read-only to pick stemmed or exact
// terms and to expand wildcards.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// Lexicon is the read-only term dictionary the parser consults.
// *index.View implements it.
type Lexicon interface {
	Has(term string) bool
	Expand(prefix, field string, limit int) (terms []string, more bool)
}

// Options tune wildcard expansion.
type Options struct {
	// WildcardOperator is "synonym" (default) or "or".
	WildcardOperator string
	// MaxExpansion caps the terms a wildcard may expand to; 0 means no cap.
	MaxExpansion int
}

type Parser struct {
	table *schema.Table
	lex   Lexicon
	opts  Options
}

// New creates a Parser. A nil lex behaves as an empty index.
func New(table *schema.Table, lex Lexicon, opts Options) *Parser {
	return &Parser{table: table, lex: lex, opts: opts}
}

// Parse parses s. An empty or blank string matches every document.
func (p *Parser) Parse(s string) (query.Query, error) {
	if strings.TrimSpace(s) == "" {
		return query.MatchAll{}, nil
	}
	tokens, err := lex(s)
	if err != nil {
		return nil, err
	}
	st := &state{p: p, tokens: tokens}
	q, err := st.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := st.peek(); tok.kind != tokEOF {
		return nil, apperrors.MalformedQuery("unexpected %s at position %d", tok.kind, tok.pos)
	}
	return q, nil
}

type state struct {
	p      *Parser
	tokens []token
	i      int
}

func (s *state) peek() token {
	return s.tokens[s.i]
}

func (s *state) advance() token {
	tok := s.tokens[s.i]
	if tok.kind != tokEOF {
		s.i++
	}
	return tok
}

func (s *state) parseOr() (query.Query, error) {
	first, err := s.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []query.Query{first}
	for s.peek().kind == tokOr {
		s.advance()
		next, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return query.NewOr(children...), nil
}

func (s *state) parseAnd() (query.Query, error) {
	var include, exclude []query.Query
	for {
		tok := s.peek()
		switch tok.kind {
		case tokEOF, tokRParen, tokOr:
			if len(include) == 0 && len(exclude) == 0 {
				return nil, apperrors.MalformedQuery("expected a term before %s at position %d", tok.kind, tok.pos)
			}
			q := query.NewAnd(include...)
			if len(exclude) > 0 {
				q = query.NewAndNot(q, query.NewOr(exclude...))
			}
			return q, nil
		case tokAnd:
			s.advance()
			if k := s.peek().kind; k == tokEOF || k == tokRParen || k == tokOr || k == tokAnd || len(include)+len(exclude) == 0 {
				return nil, apperrors.MalformedQuery("AND needs a term on each side at position %d", tok.pos)
			}
		case tokNot:
			s.advance()
			q, err := s.parsePrimary()
			if err != nil {
				return nil, err
			}
			exclude = append(exclude, q)
		default:
			q, err := s.parsePrimary()
			if err != nil {
				return nil, err
			}
			include = append(include, q)
		}
	}
}

func (s *state) parsePrimary() (query.Query, error) {
	tok := s.advance()
	switch tok.kind {
	case tokLParen:
		q, err := s.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := s.advance(); closing.kind != tokRParen {
			return nil, apperrors.MalformedQuery("missing ')' for '(' at position %d", tok.pos)
		}
		return q, nil
	case tokWord:
		return s.p.term(tok)
	}
	return nil, apperrors.MalformedQuery("unexpected %s at position %d", tok.kind, tok.pos)
}

func (p *Parser) term(tok token) (query.Query, error) {
	if tok.field == "" {
		if !tok.quoted && strings.HasSuffix(tok.value, "*") {
			return p.wildcard(strings.ToLower(strings.TrimSuffix(tok.value, "*")), "", "")
		}
		return p.text(tokenizer.Words(tok.value), "", ""), nil
	}

	col, ok := p.table.Column(tok.field)
	if !ok {
		return nil, apperrors.UnknownField(tok.field)
	}
	value := tok.value
	if !tok.quoted {
		if op, rest, ok := comparisonOp(value); ok {
			enc, err := encodeLiteral(col.Definition, rest)
			if err != nil {
				return nil, err
			}
			return comparison(col, op, enc)
		}
		if lo, hi, ok := strings.Cut(value, ".."); ok {
			return rangeQuery(col, lo, hi)
		}
	}
	if col.Name == schema.IDField {
		return query.Term{Term: index.PKTermPrefix + value}, nil
	}
	if col.Type != marshal.Text {
		enc, err := encodeLiteral(col.Definition, value)
		if err != nil {
			return nil, err
		}
		return query.Term{Term: col.Prefix() + enc}, nil
	}
	if !tok.quoted && strings.HasSuffix(value, "*") {
		return p.wildcard(strings.ToLower(strings.TrimSuffix(value, "*")), col.Prefix(), col.Name)
	}
	words := tokenizer.Words(value)
	if len(words) == 0 {
		return nil, apperrors.MalformedQuery("field %q has no searchable words", tok.field)
	}
	return p.text(words, col.Prefix(), col.Name), nil
}

// text builds the query for free-text words: a single word becomes its
// stem/exact pair, several words a phrase.
func (p *Parser) text(words []string, prefix, field string) query.Query {
	switch len(words) {
	case 0:
		return query.MatchAll{}
	case 1:
		return p.word(words[0], prefix)
	}
	terms := make([]string, len(words))
	for i, w := range words {
		terms[i] = prefix + w
	}
	return query.Phrase{Terms: terms}
}

// word keeps whichever of the stemmed and exact terms the index knows.
func (p *Parser) word(w, prefix string) query.Query {
	stemmed := query.Term{Term: index.StemPrefix + prefix + tokenizer.Stem(w)}
	exact := query.Term{Term: prefix + w}
	hasStem, hasExact := p.has(stemmed.Term), p.has(exact.Term)
	switch {
	case hasStem && hasExact:
		return query.NewOr(stemmed, exact)
	case hasExact && !hasStem:
		return exact
	}
	return stemmed
}

func (p *Parser) has(term string) bool {
	return p.lex != nil && p.lex.Has(term)
}

func (p *Parser) wildcard(stem, prefix, field string) (query.Query, error) {
	if words := tokenizer.Words(stem); len(words) != 1 || words[0] != stem {
		return nil, apperrors.MalformedQuery("wildcard %q must start with a word", stem+"*")
	}
	if p.lex == nil {
		return query.MatchNothing{}, nil
	}
	terms, more := p.lex.Expand(prefix+stem, field, p.opts.MaxExpansion)
	if more {
		return nil, apperrors.MalformedQuery("wildcard %q expands to more than %d terms", stem+"*", p.opts.MaxExpansion)
	}
	children := make([]query.Query, len(terms))
	for i, t := range terms {
		children[i] = query.Term{Term: t}
	}
	if strings.EqualFold(p.opts.WildcardOperator, "or") {
		return query.NewOr(children...), nil
	}
	return query.NewSynonym(children...), nil
}

func comparisonOp(value string) (op, rest string, ok bool) {
	for _, c := range []struct{ sym, op string }{{">=", "gte"}, {"<=", "lte"}, {">", "gt"}, {"<", "lt"}} {
		if strings.HasPrefix(value, c.sym) {
			return c.op, value[len(c.sym):], true
		}
	}
	return "", "", false
}

func encodeLiteral(def schema.Definition, raw string) (string, error) {
	v, err := marshal.Parse(raw, def.Type)
	if err != nil {
		return "", apperrors.MalformedQuery("field %q: %v", def.Name, err)
	}
	enc, err := marshal.Marshal(v, def.Type)
	if err != nil {
		return "", apperrors.MalformedQuery("field %q: %v", def.Name, err)
	}
	return enc, nil
}

func rangeQuery(col schema.Column, lo, hi string) (query.Query, error) {
	r := query.ValueRange{Slot: col.Slot, Field: col.Name}
	var err error
	if lo == "" || lo == "*" {
		r.Lo, r.LoUnbounded = marshal.Min(col.Type), true
	} else if r.Lo, err = encodeLiteral(col.Definition, lo); err != nil {
		return nil, err
	}
	if hi == "" || hi == "*" {
		r.Hi, r.HiUnbounded = marshal.Max(col.Type), true
	} else if r.Hi, err = encodeLiteral(col.Definition, hi); err != nil {
		return nil, err
	}
	if r.LoUnbounded && r.HiUnbounded {
		return nil, apperrors.MalformedQuery("range on %q needs at least one bound", col.Name)
	}
	return r, nil
}

func comparison(col schema.Column, op, enc string) (query.Query, error) {
	upTo := query.ValueRange{Slot: col.Slot, Field: col.Name, Lo: marshal.Min(col.Type), Hi: enc, LoUnbounded: true}
	from := query.ValueRange{Slot: col.Slot, Field: col.Name, Lo: enc, Hi: marshal.Max(col.Type), HiUnbounded: true}
	switch op {
	case "gt":
		return query.NewAndNot(query.MatchAll{}, upTo), nil
	case "gte":
		return from, nil
	case "lt":
		return query.NewAndNot(query.MatchAll{}, from), nil
	case "lte":
		return upTo, nil
	}
	return nil, apperrors.MalformedQuery("unknown comparison %q", op)
}

// Compare builds the range query for field <op> value, where op is one of
// gt, gte, lt, lte and value has the field's Go type.
func Compare(table *schema.Table, field, op string, value any) (query.Query, error) {
	col, ok := table.Column(field)
	if !ok {
		return nil, apperrors.UnknownField(field)
	}
	enc, err := marshal.Marshal(value, col.Type)
	if err != nil {
		return nil, err
	}
	return comparison(col, op, enc)
}
