package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Full-text engines keep an inverted index from every word to the documents
        holding it, with the positions needed for phrase queries. Field values are
        marshalled into sortable strings so range queries and sorting compare bytes.
        Facets count values over the whole match set, not just the returned page.`,
	"long": strings.Repeat(`Information retrieval systems combine tokenization and
        stemming to normalize text into searchable terms. BM25 ranking considers term
        frequency, document length normalization and inverse document frequency to
        produce relevance scores. Spelling suggestions come from the indexed vocabulary
        within a small edit distance of each unknown word. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkStemming(b *testing.B) {
	words := []string{
		"running", "indexed", "searching", "indexing",
		"tokenization", "normalization", "efficiently",
		"processing", "highlighted", "suggestions",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			_ = tokenizer.Stem(w)
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "embedded search engine facets highlighting "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}
