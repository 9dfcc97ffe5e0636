package spelling

// Distance is the Levenshtein distance between a and b. Once every cell
// of a row reaches limit the computation stops and returns limit.
func Distance(a, b []rune, limit int) int {
	if len(a) == 0 {
		return min(len(b), limit)
	}
	if len(b) == 0 {
		return min(len(a), limit)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}
		if rowMin >= limit {
			return limit
		}
		prev, curr = curr, prev
	}
	return min(prev[len(b)], limit)
}
