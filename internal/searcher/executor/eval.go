package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/query"
)

// checkEvery is how many documents a loop visits between context checks.
const checkEvery = 1024

// Evaluate returns a new bitmap of the documents matching q.
func Evaluate(ctx context.Context, v *index.View, q query.Query) (*roaring.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch x := q.(type) {
	case nil, query.MatchNothing:
		return roaring.New(), nil
	case query.MatchAll:
		return v.All().Clone(), nil
	case query.Term:
		if bm := v.Docs(x.Term); bm != nil {
			return bm.Clone(), nil
		}
		return roaring.New(), nil
	case query.Phrase:
		return evalPhrase(ctx, v, x)
	case query.ValueRange:
		return evalRange(ctx, v, x)
	case query.Bool:
		return evalBool(ctx, v, x)
	}
	return nil, fmt.Errorf("unsupported query node %T", q)
}

func evalBool(ctx context.Context, v *index.View, b query.Bool) (*roaring.Bitmap, error) {
	if len(b.Children) == 0 {
		return roaring.New(), nil
	}
	out, err := Evaluate(ctx, v, b.Children[0])
	if err != nil {
		return nil, err
	}
	for _, c := range b.Children[1:] {
		if b.Op == query.And && out.IsEmpty() {
			break
		}
		bm, err := Evaluate(ctx, v, c)
		if err != nil {
			return nil, err
		}
		switch b.Op {
		case query.And:
			out.And(bm)
		case query.Or, query.Synonym:
			out.Or(bm)
		case query.AndNot:
			out.AndNot(bm)
		}
	}
	return out, nil
}

func evalPhrase(ctx context.Context, v *index.View, p query.Phrase) (*roaring.Bitmap, error) {
	if len(p.Terms) == 0 {
		return roaring.New(), nil
	}
	candidates := roaring.New()
	for i, term := range p.Terms {
		bm := v.Docs(term)
		if bm == nil {
			return roaring.New(), nil
		}
		if i == 0 {
			candidates.Or(bm)
		} else {
			candidates.And(bm)
		}
	}
	if len(p.Terms) == 1 {
		return candidates, nil
	}

	out := roaring.New()
	var err error
	n := 0
	candidates.Iterate(func(doc uint32) bool {
		if n++; n%checkEvery == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		if phraseAt(v, p.Terms, doc) {
			out.Add(doc)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// phraseAt reports whether the terms occur at consecutive positions in doc.
func phraseAt(v *index.View, terms []string, doc uint32) bool {
	postings := make([][]uint32, len(terms))
	for i, term := range terms {
		p, ok := v.Posting(term, doc)
		if !ok || len(p.Positions) == 0 {
			return false
		}
		postings[i] = p.Positions
	}
	for _, start := range postings[0] {
		matched := true
		for i := 1; i < len(postings); i++ {
			if !containsPosition(postings[i], start+uint32(i)) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func containsPosition(positions []uint32, want uint32) bool {
	i := sort.Search(len(positions), func(i int) bool { return positions[i] >= want })
	return i < len(positions) && positions[i] == want
}

func evalRange(ctx context.Context, v *index.View, r query.ValueRange) (*roaring.Bitmap, error) {
	out := roaring.New()
	var err error
	n := 0
	v.Each(func(num uint32, d *index.Doc) bool {
		if n++; n%checkEvery == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		for _, value := range d.Value(r.Field) {
			if inRange(value, r) {
				out.Add(num)
				break
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func inRange(value string, r query.ValueRange) bool {
	if !r.LoUnbounded && strings.Compare(value, r.Lo) < 0 {
		return false
	}
	if !r.HiUnbounded && strings.Compare(value, r.Hi) > 0 {
		return false
	}
	return true
}
