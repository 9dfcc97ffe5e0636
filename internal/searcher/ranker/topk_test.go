package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleHits(n int) []Hit {
	hits := make([]Hit, n)
	for i := range hits {
		hits[i] = Hit{Doc: uint32(i), PK: fmt.Sprint(n - i), Score: float64(i * 37 % 11)}
	}
	return hits
}

func TestTopKMatchesSortedPrefix(t *testing.T) {
	for _, k := range []int{1, 3, 10, 49} {
		t.Run(fmt.Sprint(k), func(t *testing.T) {
			want := sampleHits(50)
			SortByRelevance(want)
			assert.Equal(t, want[:k], TopK(sampleHits(50), k))
		})
	}
}

func TestTopKSortsEverythingOutsideRange(t *testing.T) {
	want := sampleHits(20)
	SortByRelevance(want)
	assert.Equal(t, want, TopK(sampleHits(20), 0))
	assert.Equal(t, want, TopK(sampleHits(20), 20))
	assert.Equal(t, want, TopK(sampleHits(20), 100))
	assert.Empty(t, TopK(nil, 5))
}
