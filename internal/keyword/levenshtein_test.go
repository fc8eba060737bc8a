package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"Paris", "Paris", 0},
		{"Paris", "Pariss", 1},
		{"kitten", "sitting", 3},
		{"capital_of", "captial_of", 2},
		{"Zürich", "Zurich", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDamerauLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"ab", "ba", 1},
		{"capital_of", "captial_of", 1},
		{"kitten", "sitting", 3},
		{"abc", "ca", 3},
	}
	for _, tt := range tests {
		if got := DamerauLevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("DamerauLevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMin3(t *testing.T) {
	if got := min3(3, 1, 2); got != 1 {
		t.Errorf("min3(3, 1, 2) = %d, want 1", got)
	}
	if got := min3(-1, 0, -1); got != -1 {
		t.Errorf("min3(-1, 0, -1) = %d, want -1", got)
	}
}
