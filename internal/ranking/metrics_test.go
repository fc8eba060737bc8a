package ranking

import (
	"errors"
	"math"
	"testing"
)

func TestAggregate(t *testing.T) {
	m, err := Aggregate([]int{1, 2, 4})
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"MR", m.MR, 7.0 / 3},
		{"MRR", m.MRR, (1 + 0.5 + 0.25) / 3},
		{"Hits@1", m.Hits1, 100.0 / 3},
		{"Hits@3", m.Hits3, 200.0 / 3},
		{"Hits@10", m.Hits10, 100},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if m.Count != 3 {
		t.Errorf("Count = %d, want 3", m.Count)
	}
	if v := m.Values(); len(v) != len(MetricNames) || v[0] != m.MR || v[4] != m.Hits1 {
		t.Errorf("Values = %v", v)
	}
}

func TestAggregate_empty(t *testing.T) {
	if _, err := Aggregate(nil); !errors.Is(err, ErrNoRanks) {
		t.Errorf("err = %v, want ErrNoRanks", err)
	}
}
