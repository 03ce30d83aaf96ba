package similarity

// substringEdits returns the smallest number of single-rune insertions,
// deletions and substitutions that turn pattern into some substring of text
// (Sellers' approximate string matching). It runs in O(len(pattern)*len(text))
// time and O(len(text)) space.
func substringEdits(pattern, text []rune) int {
	m, n := len(pattern), len(text)
	if m == 0 {
		return 0
	}
	if n == 0 {
		return m
	}

	// prev holds row i-1 of the table; row 0 is all zeros because a match
	// may start anywhere in text.
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for i := 1; i <= m; i++ {
		cur[0] = i
		pr := pattern[i-1]
		for j := 1; j <= n; j++ {
			cost := 1
			if pr == text[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	best := prev[0]
	for _, v := range prev[1:] {
		if v < best {
			best = v
		}
	}
	return best
}

// charDistance is substringEdits normalized by the pattern length and
// clamped to [0,1].
func charDistance(pattern, text []rune) float64 {
	if len(pattern) == 0 || len(text) == 0 {
		return 1
	}
	d := float64(substringEdits(pattern, text)) / float64(len(pattern))
	return min(d, 1)
}

// tokenDistance is the share of query tokens missing from the field tokens.
// Word order does not matter, which catches reports that say the same thing
// in a different order.
func tokenDistance(query []string, field map[string]struct{}) float64 {
	if len(query) == 0 || len(field) == 0 {
		return 1
	}
	hits := 0
	for _, t := range query {
		if _, ok := field[t]; ok {
			hits++
		}
	}
	return 1 - float64(hits)/float64(len(query))
}
