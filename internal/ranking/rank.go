// Package ranking turns score vectors into ranks, top-K lists and aggregate
// link-prediction metrics.
package ranking

import "math"

// Rank returns the 1-based rank of scores[target]. Ties resolve to the best
// position: rank = 1 + number of strictly greater scores.
func Rank(scores []float32, target int) int {
	return 1 + countAbove(scores, scores[target])
}

// RankUnknown approximates the rank of a target with no vector. An unknown
// entity is treated as the zero vector, whose score against any query is 0.
func RankUnknown(scores []float32) int {
	return 1 + countAbove(scores, 0)
}

// AverageRank returns the 1-based rank of scores[target] in descending order,
// sharing tied positions by their mean.
func AverageRank(scores []float32, target int) float64 {
	x := scores[target]
	above, equal := 0, 0
	for _, s := range scores {
		switch {
		case s > x:
			above++
		case s == x:
			equal++
		}
	}
	return float64(above) + float64(equal+1)/2
}

// Exclude sets scores[id] to -Inf for every id except keep.
func Exclude(scores []float32, ids []int, keep int) {
	neg := float32(math.Inf(-1))
	for _, id := range ids {
		if id != keep && id >= 0 && id < len(scores) {
			scores[id] = neg
		}
	}
}

func countAbove(scores []float32, x float32) int {
	n := 0
	for _, s := range scores {
		if s > x {
			n++
		}
	}
	return n
}
