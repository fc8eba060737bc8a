package ranking

import (
	"math"
	"testing"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name   string
		scores []float32
		target int
		want   int
	}{
		{"best", []float32{0.9, 0.1, 0.5}, 0, 1},
		{"middle", []float32{0.9, 0.1, 0.5}, 2, 2},
		{"worst", []float32{0.9, 0.1, 0.5}, 1, 3},
		{"tie takes best position", []float32{0.7, 0.7, 0.2}, 1, 1},
		{"tie below leader", []float32{0.9, 0.4, 0.4}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rank(tt.scores, tt.target); got != tt.want {
				t.Errorf("Rank = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankUnknown(t *testing.T) {
	if got := RankUnknown([]float32{0.3, -0.2, 0, 0.1}); got != 3 {
		t.Errorf("RankUnknown = %d, want 3", got)
	}
}

func TestAverageRank(t *testing.T) {
	scores := []float32{0.5, 0.9, 0.5, 0.1}
	if got := AverageRank(scores, 0); got != 2.5 {
		t.Errorf("AverageRank tied = %v, want 2.5", got)
	}
	if got := AverageRank(scores, 1); got != 1 {
		t.Errorf("AverageRank best = %v, want 1", got)
	}
	if got := AverageRank(scores, 3); got != 4 {
		t.Errorf("AverageRank worst = %v, want 4", got)
	}
}

func TestExclude(t *testing.T) {
	scores := []float32{0.1, 0.9, 0.8, 0.2}
	Exclude(scores, []int{1, 2, 7}, 2)
	if !math.IsInf(float64(scores[1]), -1) {
		t.Errorf("scores[1] = %v, want -Inf", scores[1])
	}
	if scores[2] != 0.8 {
		t.Errorf("kept target changed to %v", scores[2])
	}
	if got := Rank(scores, 2); got != 1 {
		t.Errorf("Rank after exclusion = %d, want 1", got)
	}
}
