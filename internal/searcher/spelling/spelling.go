// Package spelling suggests corrections for query words using edit
// distance over the indexed vocabulary.
package spelling

import (
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/marshal"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/schema"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

type memoKey struct {
	generation uint64
	field      string
	word       string
}

// Speller corrects words against one field's vocabulary, or the free-text
// vocabulary when the field is empty. Corrections are memoized per index
// generation.
type Speller struct {
	maxDistance int
	memo        *lru.Cache[memoKey, string]
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(maxDistance, cacheSize int, m *metrics.Metrics, logger *slog.Logger) (*Speller, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	memo, err := lru.New[memoKey, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating spelling memo: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speller{
		maxDistance: maxDistance,
		memo:        memo,
		metrics:     m,
		logger:      logger.With("component", "spelling"),
	}, nil
}

// Suggest returns text with every unknown word replaced by its closest
// indexed word. It returns text unchanged when every word is known, and ""
// when some word is unknown and none could be corrected. Corrected
// field:value tokens keep their field, so the suggestion is itself a
// runnable query.
func (s *Speller) Suggest(v *index.View, table *schema.Table, text string) string {
	var (
		out       []string
		unknown   bool
		corrected bool
	)
	for _, raw := range strings.Fields(text) {
		switch raw {
		case "AND", "OR", "NOT":
			out = append(out, raw)
			continue
		}
		open, core, closing := trimParens(raw)
		field, value := "", core
		if f, val, ok := strings.Cut(core, ":"); ok {
			if def, known := table.Definition(f); known || f == schema.IDField {
				// only free-text values can be misspelled
				if f == schema.IDField || !def.Indexed || def.Type != marshal.Text {
					out = append(out, raw)
					continue
				}
				field, value = f, val
			}
		}

		words := tokenizer.Words(value)
		for i, w := range words {
			if s.known(v, table, field, w) {
				continue
			}
			unknown = true
			if fix := s.Correct(v, field, w); fix != "" {
				words[i] = fix
				corrected = true
			}
		}
		token := strings.Join(words, " ")
		if field != "" {
			token = field + ":" + token
		}
		out = append(out, open+token+closing)
	}

	var outcome, suggestion string
	switch {
	case !unknown:
		outcome, suggestion = "unchanged", text
	case corrected:
		outcome, suggestion = "corrected", strings.Join(out, " ")
	default:
		outcome = "none"
	}
	if s.metrics != nil {
		s.metrics.SpellingTotal.WithLabelValues(outcome).Inc()
	}
	s.logger.Debug("spelling suggestion", "query", text, "suggestion", suggestion, "outcome", outcome)
	return suggestion
}

func (s *Speller) known(v *index.View, table *schema.Table, field, word string) bool {
	if field == "" {
		return v.Has(word)
	}
	def, _ := table.Definition(field)
	return v.Has(def.Prefix() + word)
}

// Correct returns the indexed word closest to word, or "" when none lies
// within the maximum edit distance. Ties prefer the more frequent word,
// then the lexically smaller one.
func (s *Speller) Correct(v *index.View, field, word string) string {
	key := memoKey{generation: v.Generation(), field: field, word: word}
	if fix, ok := s.memo.Get(key); ok {
		return fix
	}

	prefix := ""
	if field != "" {
		prefix = "X" + strings.ToUpper(field)
	}
	target := []rune(word)
	best, bestDist, bestFreq := "", s.maxDistance+1, 0
	v.Words(field, func(term string, df int) bool {
		candidate := []rune(strings.TrimPrefix(term, prefix))
		if abs(len(candidate)-len(target)) > s.maxDistance {
			return true
		}
		d := Distance(target, candidate, bestDist+1)
		if d < bestDist || (d == bestDist && d <= s.maxDistance && df > bestFreq) {
			best, bestDist, bestFreq = string(candidate), d, df
		}
		return true
	})
	if bestDist > s.maxDistance {
		best = ""
	}
	s.memo.Add(key, best)
	return best
}

func trimParens(s string) (open, core, closing string) {
	core = strings.TrimLeft(s, "(")
	open = s[:len(s)-len(core)]
	trimmed := strings.TrimRight(core, ")")
	closing = core[len(trimmed):]
	return open, trimmed, closing
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
