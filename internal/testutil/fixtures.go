package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Model describes a trained model directory fixture. Nil optional fields are
// not written.
type Model struct {
	Dim              int
	EntityVectors    []float32 // E*D
	RelationMatrices []float32 // 2R*D*D
	ContextVectors   []float32 // E*D
	EntitySteps      []uint64  // written as vsteps.npy; nil writes zeros of length 2E
	RelationSteps    []uint64  // msteps.npy
	Encoder          []float32 // K*D*D
	Decoder          []float32 // K*D*D
	DecoderStep      *uint64
	Params           string // params.json body; empty writes {"vEL": 0, "autoEL": 0}
}

// WriteModel writes m into dir using the trainer's file names.
func WriteModel(t testing.TB, dir string, m Model) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	d := m.Dim
	e := len(m.EntityVectors) / d
	r2 := len(m.RelationMatrices) / (d * d)
	WriteNpy(t, filepath.Join(dir, "tvecs.npy"), []int{e, d}, m.EntityVectors)
	WriteNpy(t, filepath.Join(dir, "cvecs.npy"), []int{len(m.ContextVectors) / d, d}, m.ContextVectors)
	WriteNpy(t, filepath.Join(dir, "mats.npy"), []int{r2, d, d}, m.RelationMatrices)
	steps := m.EntitySteps
	if steps == nil {
		steps = make([]uint64, 2*e)
	}
	WriteNpy(t, filepath.Join(dir, "vsteps.npy"), []int{len(steps)}, steps)
	if m.RelationSteps != nil {
		WriteNpy(t, filepath.Join(dir, "msteps.npy"), []int{len(m.RelationSteps)}, m.RelationSteps)
	}
	if m.Encoder != nil {
		k := len(m.Encoder) / (d * d)
		WriteNpy(t, filepath.Join(dir, "encoder.npy"), []int{k, d, d}, m.Encoder)
	}
	if m.Decoder != nil {
		k := len(m.Decoder) / (d * d)
		WriteNpy(t, filepath.Join(dir, "decoder.npy"), []int{k, d, d}, m.Decoder)
	}
	if m.DecoderStep != nil {
		WriteNpy(t, filepath.Join(dir, "dstep.npy"), []int{}, []uint64{*m.DecoderStep})
	}
	params := m.Params
	if params == "" {
		params = `{"vEL": 0, "autoEL": 0}`
	}
	WriteFile(t, filepath.Join(dir, "params.json"), params)
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

// WriteVocab writes a name<TAB>frequency vocabulary in the given order.
func WriteVocab(t testing.TB, path string, names ...string) {
	t.Helper()
	var b strings.Builder
	for i, n := range names {
		b.WriteString(n)
		b.WriteString("\t")
		b.WriteString(strings.Repeat("1", len(names)-i))
		b.WriteString(".0\n")
	}
	WriteFile(t, path, b.String())
}

// Identity returns n stacked dim x dim identity matrices.
func Identity(n, dim int) []float32 {
	out := make([]float32, n*dim*dim)
	for k := 0; k < n; k++ {
		for i := 0; i < dim; i++ {
			out[k*dim*dim+i*dim+i] = 1
		}
	}
	return out
}

// Scenario is the three-entity, one-relation, 2-D model used across package
// tests: A=(1,0) B=(0,1) C=(-1,0). r_forward rotates by +90°, r_backward by -90°;
// context vectors equal entity vectors. trans(A, r_forward) lands on B.
func Scenario() Model {
	return Model{
		Dim:           2,
		EntityVectors: []float32{1, 0, 0, 1, -1, 0},
		RelationMatrices: []float32{
			0, -1, 1, 0, // r_forward: (x,y) -> (-y,x)
			0, 1, -1, 0, // r_backward: (x,y) -> (y,-x)
		},
		ContextVectors: []float32{1, 0, 0, 1, -1, 0},
	}
}

// WriteScenario writes the Scenario model plus a dataset with vocabularies,
// splits and most-frequent substitute maps. It returns (datasetDir, modelDir).
func WriteScenario(t testing.TB, root string) (string, string) {
	t.Helper()
	dataDir := filepath.Join(root, "data")
	modelDir := filepath.Join(root, "model")
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		t.Fatal(err)
	}
	WriteVocab(t, filepath.Join(dataDir, "vocab_entity.txt"), "A", "B", "C")
	WriteVocab(t, filepath.Join(dataDir, "vocab_relation.txt"), "r")
	WriteFile(t, filepath.Join(dataDir, "train.txt"), "A\tr\tB\n")
	WriteFile(t, filepath.Join(dataDir, "valid.txt"), "B\tr\tC\n")
	WriteFile(t, filepath.Join(dataDir, "test.txt"), "A\tr\tB\nZ\tr\tB\n")
	WriteFile(t, filepath.Join(dataDir, "most_freq_r2h.json"), `{"r": "A"}`)
	WriteFile(t, filepath.Join(dataDir, "most_freq_r2t.json"), `{"r": "B"}`)
	WriteModel(t, modelDir, Scenario())
	return dataDir, modelDir
}
