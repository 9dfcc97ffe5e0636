package ranker

import "container/heap"

// TopK returns the first k hits of the relevance order. Only k hits are
// ever held in order; the rest are discarded as they are seen. A k outside
// (0, len(hits)) sorts everything.
func TopK(hits []Hit, k int) []Hit {
	if k <= 0 || k >= len(hits) {
		SortByRelevance(hits)
		return hits
	}
	h := make(worstFirst, 0, k)
	for _, hit := range hits {
		if h.Len() < k {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}
	out := make([]Hit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Hit)
	}
	return out
}

// worstFirst is a heap whose root is the least relevant hit.
type worstFirst []Hit

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(Hit))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
