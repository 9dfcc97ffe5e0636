package executor

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

type sortKey struct {
	field string
	desc  bool
}

// parseSortKeys returns nil when no key is given.
func parseSortKeys(table *schema.Table, names []string) ([]sortKey, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]sortKey, 0, len(names))
	for _, name := range names {
		key := sortKey{field: name}
		if rest, ok := strings.CutPrefix(name, "-"); ok {
			key = sortKey{field: rest, desc: true}
		}
		col, ok := table.Column(key.field)
		if !ok || !col.Sortable() {
			return nil, apperrors.UnknownField(key.field)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// sortByKeys is a stable multi-key sort; equal keys keep document order.
func sortByKeys(v *index.View, hits []ranker.Hit, keys []sortKey) {
	values := make(map[uint32]*index.Doc, len(hits))
	for _, h := range hits {
		if d, ok := v.Doc(h.Doc); ok {
			values[h.Doc] = d
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := values[hits[i].Doc], values[hits[j].Doc]
		for _, k := range keys {
			c := compareField(a, b, k.field)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return hits[i].Doc < hits[j].Doc
	})
}

func compareField(a, b *index.Doc, field string) int {
	if field == schema.IDField {
		return ranker.CompareNatural(a.PK, b.PK)
	}
	return strings.Compare(first(a.Value(field)), first(b.Value(field)))
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
