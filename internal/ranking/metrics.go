package ranking

import "errors"

// ErrNoRanks is returned when metrics are requested over an empty rank list.
var ErrNoRanks = errors.New("no ranks to aggregate")

// MetricNames lists the summary metrics in reporting order.
var MetricNames = []string{"MR", "MRR", "H@10", "H@3", "H@1"}

// Metrics are filtered link-prediction metrics. Hits are percentages.
type Metrics struct {
	MR     float64 `json:"MR"`
	MRR    float64 `json:"MRR"`
	Hits10 float64 `json:"Hits@10"`
	Hits3  float64 `json:"Hits@3"`
	Hits1  float64 `json:"Hits@1"`
	Count  int     `json:"count"`
}

// Values returns the metrics in MetricNames order.
func (m Metrics) Values() []float64 {
	return []float64{m.MR, m.MRR, m.Hits10, m.Hits3, m.Hits1}
}

// Aggregate computes metrics over a pooled list of 1-based ranks.
func Aggregate(ranks []int) (Metrics, error) {
	if len(ranks) == 0 {
		return Metrics{}, ErrNoRanks
	}
	var m Metrics
	var h1, h3, h10 int
	for _, r := range ranks {
		m.MR += float64(r)
		m.MRR += 1 / float64(r)
		if r <= 1 {
			h1++
		}
		if r <= 3 {
			h3++
		}
		if r <= 10 {
			h10++
		}
	}
	n := float64(len(ranks))
	m.MR /= n
	m.MRR /= n
	m.Hits1 = 100 * float64(h1) / n
	m.Hits3 = 100 * float64(h3) / n
	m.Hits10 = 100 * float64(h10) / n
	m.Count = len(ranks)
	return m, nil
}
