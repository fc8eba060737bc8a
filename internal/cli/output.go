// Package cli renders evaluation results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/kbeval/internal/eval"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/ranking"
	"github.com/hyperjump/kbeval/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// WriteMetrics writes the metrics of one evaluation. The text form is a
// tab-separated header line and value line.
func WriteMetrics(w io.Writer, m ranking.Metrics, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, m)
	}
	fmt.Fprintln(w, strings.Join(ranking.MetricNames, "\t"))
	_, err := fmt.Fprintf(w, "%.0f\t%.3f\t%.1f\t%.1f\t%.1f\n", m.MR, m.MRR, m.Hits10, m.Hits3, m.Hits1)
	return err
}

// WriteSummary writes the mean and standard deviation of several runs.
func WriteSummary(w io.Writer, s eval.Summary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\tMR\tMRR\tHits@10\tHits@3\tHits@1\t\n")
	for _, row := range []struct {
		label string
		m     ranking.Metrics
	}{{"mean", s.Mean}, {"std", s.Std}} {
		fmt.Fprintf(tw, "%s", row.label)
		for _, v := range row.m.Values() {
			fmt.Fprintf(tw, "\t%.6f", v)
		}
		fmt.Fprintf(tw, "\t\n")
	}
	return tw.Flush()
}

// WriteRuns lists stored runs, newest first.
func WriteRuns(w io.Writer, runs []*models.Run, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*models.Run{}
		}
		return writeJSON(w, runs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSPLIT\tMR\tMRR\tH@10\tH@3\tH@1\tMODEL")
	for _, r := range runs {
		m := r.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%.3f\t%.1f\t%.1f\t%.1f\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Split,
			m.MR, m.MRR, m.Hits10, m.Hits3, m.Hits1, utils.Truncate(r.ModelDir, 60))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
