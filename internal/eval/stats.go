package eval

import (
	"fmt"
	"math"

	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/ranking"
)

// Summary is the mean and sample standard deviation of metrics across runs.
// Std is zero for a single run.
type Summary struct {
	Runs int             `json:"runs"`
	Mean ranking.Metrics `json:"mean"`
	Std  ranking.Metrics `json:"std"`
}

// Describe summarizes the metrics of several runs.
func Describe(runs []ranking.Metrics) (Summary, error) {
	if len(runs) == 0 {
		return Summary{}, &EvaluationError{Err: ranking.ErrNoRanks}
	}
	n := float64(len(runs))
	mean := make([]float64, len(ranking.MetricNames))
	for _, m := range runs {
		for i, v := range m.Values() {
			mean[i] += v / n
		}
	}
	std := make([]float64, len(mean))
	if len(runs) > 1 {
		for _, m := range runs {
			for i, v := range m.Values() {
				std[i] += (v - mean[i]) * (v - mean[i])
			}
		}
		for i := range std {
			std[i] = math.Sqrt(std[i] / (n - 1))
		}
	}
	return Summary{Runs: len(runs), Mean: fromValues(mean), Std: fromValues(std)}, nil
}

func fromValues(v []float64) ranking.Metrics {
	return ranking.Metrics{MR: v[0], MRR: v[1], Hits10: v[2], Hits3: v[3], Hits1: v[4]}
}

// MetricsFromDetail recomputes the metrics of a stored ranking detail file.
func MetricsFromDetail(path string) (ranking.Metrics, error) {
	details, err := ReadDetails(path)
	if err != nil {
		return ranking.Metrics{}, err
	}
	m, err := ranking.Aggregate(models.Ranks(details))
	if err != nil {
		return m, &EvaluationError{Err: fmt.Errorf("%s: %w", path, err)}
	}
	return m, nil
}
