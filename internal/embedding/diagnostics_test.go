package embedding

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kbeval/internal/testutil"
	"gonum.org/v1/gonum/mat"
)

func loadWithAutoencoder(t *testing.T) *EmbeddingSet {
	t.Helper()
	dir := t.TempDir()
	m := testutil.Scenario()
	m.Encoder = []float32{
		1, 0, 0, 1, // identity direction
		0, -1, 1, 0, // rotation direction
	}
	m.Decoder = append([]float32(nil), m.Encoder...)
	m.RelationSteps = []uint64{7, 2}
	testutil.WriteModel(t, dir, m)
	set, err := Load(dir, scenarioLexicon(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestCodeActivation(t *testing.T) {
	bound := 4 * math.Sqrt(2)
	tests := []struct {
		x, want float64
	}{
		{0, 0.5},
		{2, 2},
		{-2, 0},
		{-4, 0},
		{100, bound},
	}
	for _, tt := range tests {
		if got := codeActivation(tt.x, bound); !approx(got, tt.want) {
			t.Errorf("codeActivation(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
	prev := math.Inf(-1)
	for x := -6.0; x <= 10; x += 0.25 {
		y := codeActivation(x, bound)
		if y < prev-1e-12 {
			t.Fatalf("not monotonic at %v", x)
		}
		prev = y
	}
}

func TestCodeOf(t *testing.T) {
	set := loadWithAutoencoder(t)
	if set.CodeLen() != 2 {
		t.Fatalf("CodeLen = %d, want 2", set.CodeLen())
	}
	code, err := set.CodeOf(0)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(float64(code[0]), 0.5) || !approx(float64(code[1]), 2) {
		t.Errorf("code = %v, want [0.5 2]", code)
	}

	plain := loadScenario(t)
	if _, err := plain.CodeOf(0); !errors.Is(err, ErrNoAutoencoder) {
		t.Errorf("err = %v, want ErrNoAutoencoder", err)
	}
}

func TestInspectRelation(t *testing.T) {
	set := loadWithAutoencoder(t)
	rep, err := set.InspectRelation(0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relation != "r_forward" || rep.Steps != 7 {
		t.Errorf("report header = %+v", rep)
	}
	if !approx(rep.NonDiagonal, math.Sqrt2) || !approx(rep.Diagonal, 0) {
		t.Errorf("deformation = %v, %v", rep.NonDiagonal, rep.Diagonal)
	}
	if !approx(rep.Skewness, 0) || !approx(rep.SkewDiagonal, 1) {
		t.Errorf("skewness = %v, %v", rep.Skewness, rep.SkewDiagonal)
	}
	// decoded = 0.5·I + 2·rot = [.5 -2 2 .5], squared norm 8.5.
	norm := math.Sqrt(2 / 8.5)
	if !approx(rep.DecoderNorm, norm) {
		t.Errorf("DecoderNorm = %v, want %v", rep.DecoderNorm, norm)
	}
	if !approx(rep.DecodingCosine, 2*norm) {
		t.Errorf("DecodingCosine = %v, want %v", rep.DecodingCosine, 2*norm)
	}

	plain, err := loadScenario(t).InspectRelation(1)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Code != nil || plain.DecoderNorm != 0 {
		t.Errorf("expected no autoencoder fields, got %+v", plain)
	}
}

func TestRelationSimilarity(t *testing.T) {
	set := loadScenario(t)
	m, _ := set.RelationMatrix(0)
	sims, err := set.RelationSimilarity(m.Dense())
	if err != nil {
		t.Fatal(err)
	}
	if !approx(float64(sims[0]), 1) || !approx(float64(sims[1]), -1) {
		t.Errorf("sims = %v, want [1 -1]", sims)
	}
	if _, err := set.RelationSimilarity(mat.NewDense(1, 2, []float64{1, 0})); err == nil {
		t.Error("expected shape error")
	}
}

func TestCompose(t *testing.T) {
	set := loadScenario(t)
	mm, err := set.Compose(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	// forward then backward rotation is the identity.
	if !mat.EqualApprox(mm, mat.NewDiagDense(2, []float64{1, 1}), 1e-6) {
		t.Errorf("compose = %v, want identity", mat.Formatted(mm))
	}
	// r_forward·r_forward is a half turn, orthogonal to both rotations: ranks tie.
	rank, err := set.CompositeRank(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rank != 1.5 {
		t.Errorf("CompositeRank = %v, want 1.5", rank)
	}
	if _, err := set.CompositeRank(0, 0, 5); err == nil {
		t.Error("expected error for unknown relation")
	}
}
