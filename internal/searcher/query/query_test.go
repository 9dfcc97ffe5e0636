package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextualForms(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"term", Term{"Zindex"}, "Query(Zindex)"},
		{"or", NewOr(Term{"Zindex"}, Term{"indexed"}), "Query((Zindex OR indexed))"},
		{"synonym", NewSynonym(Term{"XNAMEdavid1"}, Term{"XNAMEdavid2"}), "Query((XNAMEdavid1 SYNONYM XNAMEdavid2))"},
		{"range", ValueRange{Slot: 5, Lo: "david1", Hi: "david2"}, "Query(VALUE_RANGE 5 david1 david2)"},
		{"strict", NewAndNot(MatchAll{}, ValueRange{Slot: 5, Lo: "", Hi: "m", LoUnbounded: true}), "Query((<alldocuments> AND_NOT VALUE_RANGE 5 <min> m))"},
		{"phrase", Phrase{Terms: []string{"quick", "fox"}}, "Query((quick PHRASE 2 fox))"},
		{"nothing", MatchNothing{}, "Query()"},
		{"nil", nil, "Query()"},
		{"binary", Term{"XPOPULARITY\xc0\x39"}, `Query("XPOPULARITY\xc09")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.q))
		})
	}
}

func TestConstructorsSimplify(t *testing.T) {
	assert.Equal(t, MatchAll{}, NewAnd())
	assert.Equal(t, Term{"a"}, NewAnd(MatchAll{}, Term{"a"}))
	assert.Equal(t, MatchNothing{}, NewAnd(Term{"a"}, MatchNothing{}))
	assert.Equal(t, "(a AND b AND c)", NewAnd(NewAnd(Term{"a"}, Term{"b"}), Term{"c"}).String())
	assert.Equal(t, MatchNothing{}, NewOr())
	assert.Equal(t, Term{"a"}, NewOr(MatchNothing{}, Term{"a"}))
	assert.Equal(t, Term{"a"}, NewAndNot(Term{"a"}, MatchNothing{}))
}

func TestTerms(t *testing.T) {
	q := NewAnd(NewOr(Term{"Zwhi"}, Term{"why"}), NewAndNot(Term{"a"}, Term{"b"}), Phrase{Terms: []string{"c", "d"}})
	assert.Equal(t, []string{"Zwhi", "why", "a", "c", "d"}, Terms(q, false))
	assert.Equal(t, []string{"Zwhi", "why", "a", "b", "c", "d"}, Terms(q, true))
}
