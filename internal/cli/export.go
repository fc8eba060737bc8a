package cli

import (
	"fmt"

	"github.com/hyperjump/kbeval/internal/eval"
	"github.com/hyperjump/kbeval/internal/ranking"
	"github.com/xuri/excelize/v2"
)

// RunsSheet is the worksheet written by ExportXLSX.
const RunsSheet = "Runs"

// ExportXLSX writes one row per run, labelled by labels, followed by the
// mean and std rows of summary.
func ExportXLSX(path string, labels []string, runs []ranking.Metrics, summary eval.Summary) error {
	if len(labels) != len(runs) {
		return fmt.Errorf("%d labels for %d runs", len(labels), len(runs))
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RunsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header := []interface{}{"model", "MR", "MRR", "Hits@10", "Hits@3", "Hits@1", "count"}
	if err := f.SetSheetRow(RunsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	writeRow := func(label string, m ranking.Metrics, count interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []interface{}{label}
		for _, v := range m.Values() {
			values = append(values, v)
		}
		values = append(values, count)
		row++
		return f.SetSheetRow(RunsSheet, cell, &values)
	}

	for i, m := range runs {
		if err := writeRow(labels[i], m, m.Count); err != nil {
			return fmt.Errorf("failed to write run %s: %w", labels[i], err)
		}
	}
	if err := writeRow("mean", summary.Mean, summary.Runs); err != nil {
		return fmt.Errorf("failed to write mean: %w", err)
	}
	if err := writeRow("std", summary.Std, summary.Runs); err != nil {
		return fmt.Errorf("failed to write std: %w", err)
	}
	if err := f.SetColWidth(RunsSheet, "A", "A", 40); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
