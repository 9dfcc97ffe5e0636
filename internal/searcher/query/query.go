// Package query defines the query tree evaluated by the executor. Trees are
// immutable values; String renders the textual form used in logs, cache
// keys and tests.
package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Query is a node of the query tree.
type Query interface {
	String() string
	node()
}

// Op combines the children of a Bool node.
type Op int

const (
	And Op = iota
	Or
	AndNot
	// Synonym matches like Or but scores its children as one merged term.
	Synonym
)

func (o Op) String() string {
	switch o {
	case And:
		return "AND"
	case Or:
		return "OR"
	case AndNot:
		return "AND_NOT"
	case Synonym:
		return "SYNONYM"
	}
	return "UNKNOWN"
}

// Term matches documents containing an index term.
type Term struct {
	Term string
}

// Phrase matches documents containing Terms at consecutive positions.
type Phrase struct {
	Terms []string
}

// ValueRange matches documents with a slot value in [Lo, Hi]. Unbounded
// ends carry the type's sentinel encoding in Lo/Hi.
type ValueRange struct {
	Slot        int
	Field       string
	Lo, Hi      string
	LoUnbounded bool
	HiUnbounded bool
}

// Bool applies Op to its children. AndNot subtracts every child after the
// first from the first.
type Bool struct {
	Op       Op
	Children []Query
}

// MatchAll matches every document.
type MatchAll struct{}

// MatchNothing matches no document.
type MatchNothing struct{}

func (Term) node()         {}
func (Phrase) node()       {}
func (ValueRange) node()   {}
func (Bool) node()         {}
func (MatchAll) node()     {}
func (MatchNothing) node() {}

func (t Term) String() string { return printable(t.Term) }

func (p Phrase) String() string {
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = printable(t)
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, fmt.Sprintf(" PHRASE %d ", len(p.Terms))))
}

func (r ValueRange) String() string {
	lo, hi := printable(r.Lo), printable(r.Hi)
	if r.LoUnbounded {
		lo = "<min>"
	}
	if r.HiUnbounded {
		hi = "<max>"
	}
	return fmt.Sprintf("VALUE_RANGE %d %s %s", r.Slot, lo, hi)
}

func (b Bool) String() string {
	parts := make([]string, len(b.Children))
	for i, c := range b.Children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+b.Op.String()+" ") + ")"
}

func (MatchAll) String() string     { return "<alldocuments>" }
func (MatchNothing) String() string { return "" }

// Text wraps a tree's rendering as "Query(...)".
func Text(q Query) string {
	if q == nil {
		q = MatchNothing{}
	}
	return "Query(" + q.String() + ")"
}

// printable keeps terms readable and escapes binary encodings.
func printable(s string) string {
	if !utf8.ValidString(s) {
		return fmt.Sprintf("%q", s)
	}
	for _, r := range s {
		if !unicode.IsGraphic(r) || unicode.IsSpace(r) {
			return fmt.Sprintf("%q", s)
		}
	}
	return s
}

// NewAnd joins children with AND, flattening nested ANDs, dropping MatchAll
// and collapsing to MatchNothing if any child is MatchNothing.
func NewAnd(children ...Query) Query {
	out := make([]Query, 0, len(children))
	for _, c := range children {
		switch x := c.(type) {
		case nil, MatchAll:
			continue
		case MatchNothing:
			return MatchNothing{}
		case Bool:
			if x.Op == And {
				out = append(out, x.Children...)
				continue
			}
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return MatchAll{}
	case 1:
		return out[0]
	}
	return Bool{Op: And, Children: out}
}

// NewOr joins children with OR, dropping MatchNothing.
func NewOr(children ...Query) Query {
	return combine(Or, children)
}

// NewSynonym joins children as one merged term.
func NewSynonym(children ...Query) Query {
	return combine(Synonym, children)
}

func combine(op Op, children []Query) Query {
	out := make([]Query, 0, len(children))
	for _, c := range children {
		if c == nil {
			continue
		}
		if _, ok := c.(MatchNothing); ok {
			continue
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return MatchNothing{}
	case 1:
		return out[0]
	}
	return Bool{Op: op, Children: out}
}

// NewAndNot removes exclude's matches from include.
func NewAndNot(include, exclude Query) Query {
	if _, ok := exclude.(MatchNothing); ok || exclude == nil {
		return include
	}
	if _, ok := include.(MatchNothing); ok {
		return include
	}
	return Bool{Op: AndNot, Children: []Query{include, exclude}}
}

// Terms lists the Term and Phrase terms of q in tree order, including
// those under AndNot exclusions when withExcluded is set.
func Terms(q Query, withExcluded bool) []string {
	var out []string
	var walk func(Query)
	walk = func(q Query) {
		switch x := q.(type) {
		case Term:
			out = append(out, x.Term)
		case Phrase:
			out = append(out, x.Terms...)
		case Bool:
			for i, c := range x.Children {
				if x.Op == AndNot && i > 0 && !withExcluded {
					break
				}
				walk(c)
			}
		}
	}
	walk(q)
	return out
}
