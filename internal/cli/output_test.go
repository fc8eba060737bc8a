package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kbeval/internal/eval"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/ranking"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteMetrics_Text(t *testing.T) {
	var buf bytes.Buffer
	m := ranking.Metrics{MR: 7.0 / 3, MRR: 1.75 / 3, Hits10: 100, Hits3: 200.0 / 3, Hits1: 100.0 / 3, Count: 3}
	if err := WriteMetrics(&buf, m, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "MR\tMRR\tH@10\tH@3\tH@1\n2\t0.583\t100.0\t66.7\t33.3\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteMetrics_JSON(t *testing.T) {
	var buf bytes.Buffer
	m := ranking.Metrics{MR: 2, MRR: 0.5, Hits10: 100, Count: 4}
	if err := WriteMetrics(&buf, m, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]float64
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["MR"] != 2 || decoded["Hits@10"] != 100 || decoded["count"] != 4 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestWriteSummary(t *testing.T) {
	s := eval.Summary{
		Runs: 2,
		Mean: ranking.Metrics{MR: 10, MRR: 0.5},
		Std:  ranking.Metrics{MR: 1.5},
	}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, s, OutputText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "Hits@10") || !strings.HasPrefix(strings.TrimSpace(lines[1]), "mean") || !strings.HasPrefix(strings.TrimSpace(lines[2]), "std") {
		t.Errorf("unexpected layout:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "10.000000") || !strings.Contains(lines[2], "1.500000") {
		t.Errorf("values missing:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteSummary(&buf, s, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded eval.Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Runs != 2 || decoded.Std.MR != 1.5 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRuns(t *testing.T) {
	runs := []*models.Run{{
		ID:        "run-1",
		ModelDir:  "/models/a",
		Split:     "test",
		Metrics:   ranking.Metrics{MR: 3, MRR: 0.5, Hits10: 90, Hits3: 60, Hits1: 30},
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	var buf bytes.Buffer
	if err := WriteRuns(&buf, runs, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ID", "run-1", "2024-05-01 12:00:00", "0.500", "/models/a"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := WriteRuns(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON list = %q", buf.String())
	}
}
