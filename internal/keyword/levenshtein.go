package keyword

// LevenshteinDistance returns the edit distance between a and b counting
// insertions, deletions and substitutions of runes.
func LevenshteinDistance(a, b string) int {
	return editDistance([]rune(a), []rune(b), false)
}

// DamerauLevenshteinDistance additionally counts a transposition of two
// adjacent runes as a single edit (optimal string alignment).
func DamerauLevenshteinDistance(a, b string) int {
	return editDistance([]rune(a), []rune(b), true)
}

func editDistance(a, b []rune, transpositions bool) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// d[i][j] is the distance between a[:i] and b[:j].
	d := make([][]int, len(a)+1)
	for i := range d {
		d[i] = make([]int, len(b)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d[i][j] = min3(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if transpositions && i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(a)][len(b)]
}

func min3(a, b, c int) int {
	return min(a, min(b, c))
}
