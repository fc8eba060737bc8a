package embedding

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/testutil"
	"github.com/hyperjump/kbeval/pkg/utils"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-5

func scenarioLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.New([]string{"A", "B", "C"}, []string{"r"})
	if err != nil {
		t.Fatal(err)
	}
	return lex
}

func loadScenario(t *testing.T) *EmbeddingSet {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteModel(t, dir, testutil.Scenario())
	set, err := Load(dir, scenarioLexicon(t), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return set
}

func approx(a, b float64) bool { return math.Abs(a-b) < tol }

func TestLoad_normalizes(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModel(t, dir, testutil.Model{
		Dim:           2,
		EntityVectors: []float32{3, 4, 0, 2, -1, 1},
		RelationMatrices: []float32{
			2, 0, 0, 2,
			0, -3, 3, 1,
		},
		ContextVectors: []float32{2, 2, 1, 0, 0, 1},
		EntitySteps:    []uint64{1, 0, 3, 9, 9, 9},
		Params:         `{"vEL": 1, "autoEL": 0.5, "trainer": "sgd", "dim": 2}`,
	})
	set, err := Load(dir, scenarioLexicon(t), nil)
	if err != nil {
		t.Fatal(err)
	}

	for id := 0; id < 3; id++ {
		v, _ := set.EntityVector(id)
		if n := utils.L2Norm(v); !approx(n, 1) {
			t.Errorf("|entity %d| = %v, want 1", id, n)
		}
	}
	a, _ := set.EntityVector(0)
	if !approx(float64(a[0]), 0.6) || !approx(float64(a[1]), 0.8) {
		t.Errorf("entity A = %v, want [0.6 0.8]", a)
	}

	for rid := 0; rid < 2; rid++ {
		m, _ := set.RelationMatrix(rid)
		if sq := math.Pow(mat.Norm(m.Dense(), 2), 2); !approx(sq, 2) {
			t.Errorf("relation %d squared norm = %v, want 2", rid, sq)
		}
	}
	fwd, _ := set.RelationMatrix(0)
	if !approx(float64(fwd.At(0, 0)), 1) || !approx(float64(fwd.At(1, 1)), 1) {
		t.Errorf("scaled 2I = %v, want identity", fwd.Data())
	}

	// Context rows divided by 1 + steps·vEL: 2, 1, 4.
	sims, _ := set.ContextSimilarity([]float32{1, 0})
	want := []float64{1, 1, 0}
	for i := range want {
		if !approx(float64(sims[i]), want[i]) {
			t.Errorf("context sim[%d] = %v, want %v", i, sims[i], want[i])
		}
	}
	sims, _ = set.ContextSimilarity([]float32{0, 1})
	if !approx(float64(sims[2]), 0.25) {
		t.Errorf("context sim[2] = %v, want 0.25", sims[2])
	}
	if set.EntitySteps(2) != 3 {
		t.Errorf("EntitySteps(2) = %d, want 3", set.EntitySteps(2))
	}

	hp := set.Params()
	if *hp.VEL != 1 || *hp.AutoEL != 0.5 || hp.Extra["trainer"] != "sgd" {
		t.Errorf("Params = %+v", hp)
	}
	if set.CodeLen() != 0 {
		t.Errorf("CodeLen = %d, want 0", set.CodeLen())
	}
}

func TestLoad_otherDtypes(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModel(t, dir, testutil.Scenario())
	testutil.WriteNpy(t, filepath.Join(dir, EntityVectorsFile), []int{3, 2}, []float64{1, 0, 0, 1, -1, 0})
	testutil.WriteNpy(t, filepath.Join(dir, EntityStepsFile), []int{3}, []int64{0, 1, 2})
	set, err := Load(dir, scenarioLexicon(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if set.EntitySteps(1) != 1 {
		t.Errorf("EntitySteps(1) = %d, want 1", set.EntitySteps(1))
	}
}

func TestLoad_shapeMismatch(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModel(t, dir, testutil.Scenario())
	lex, err := lexicon.New([]string{"A", "B", "C", "D"}, []string{"r"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Load(dir, lex, nil)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want LoadError", err)
	}
	if filepath.Base(le.Path) != EntityVectorsFile {
		t.Errorf("LoadError path = %s", le.Path)
	}
}

func TestLoad_relationCountMismatch(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModel(t, dir, testutil.Scenario())
	lex, err := lexicon.New([]string{"A", "B", "C"}, []string{"r", "s"})
	if err != nil {
		t.Fatal(err)
	}
	var le *LoadError
	if _, err := Load(dir, lex, nil); !errors.As(err, &le) {
		t.Fatalf("err = %v, want LoadError", err)
	}
}

func TestLoad_zeroEntityVector(t *testing.T) {
	dir := t.TempDir()
	m := testutil.Scenario()
	m.EntityVectors = []float32{1, 0, 0, 0, -1, 0}
	testutil.WriteModel(t, dir, m)
	_, err := Load(dir, scenarioLexicon(t), nil)
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("err = %v, want ErrDegenerate", err)
	}
}

func TestLoad_missingHyperparameter(t *testing.T) {
	dir := t.TempDir()
	m := testutil.Scenario()
	m.Params = `{"vEL": 0.1}`
	testutil.WriteModel(t, dir, m)
	var le *LoadError
	if _, err := Load(dir, scenarioLexicon(t), nil); !errors.As(err, &le) {
		t.Fatalf("err = %v, want LoadError", err)
	}
}

func TestLoad_missingFile(t *testing.T) {
	var le *LoadError
	if _, err := Load(t.TempDir(), scenarioLexicon(t), nil); !errors.As(err, &le) {
		t.Fatalf("err = %v, want LoadError", err)
	}
}

func TestTransform(t *testing.T) {
	set := loadScenario(t)
	a, _ := set.EntityVector(0)
	got, err := set.Transform(a, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(float64(got[0]), 0) || !approx(float64(got[1]), 1) {
		t.Errorf("trans(A, r_forward) = %v, want [0 1]", got)
	}
	back, _ := set.Transform(got, 1)
	if !approx(float64(back[0]), 1) || !approx(float64(back[1]), 0) {
		t.Errorf("trans(B, r_backward) = %v, want [1 0]", back)
	}
	if _, err := set.Transform(a, 2); !errors.Is(err, lexicon.ErrNotFound) {
		t.Errorf("out of range relation: err = %v", err)
	}
}

func TestTransform_unitNorm(t *testing.T) {
	dir := t.TempDir()
	m := testutil.Scenario()
	m.RelationMatrices = []float32{3, 1, -2, 5, 0.5, 0, 0.25, 2}
	testutil.WriteModel(t, dir, m)
	set, err := Load(dir, scenarioLexicon(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	for id := 0; id < 3; id++ {
		v, _ := set.EntityVector(id)
		for rid := 0; rid < 2; rid++ {
			out, err := set.Transform(v, rid)
			if err != nil {
				t.Fatal(err)
			}
			if n := utils.L2Norm(out); !approx(n, 1) {
				t.Errorf("|transform(%d, %d)| = %v", id, rid, n)
			}
		}
	}
}

func TestTransform_degenerate(t *testing.T) {
	lex := scenarioLexicon(t)
	vel, autoEL := 0.0, 0.0
	set, err := NewEmbeddingSet(lex, Arrays{
		Dim:              2,
		EntityVectors:    []float32{1, 0, 0, 1, -1, 0},
		RelationMatrices: []float32{1, 0, 0, 0, 0, 1, 0, 0},
		ContextVectors:   make([]float32, 6),
		EntitySteps:      make([]uint64, 3),
		Params:           Hyperparameters{VEL: &vel, AutoEL: &autoEL},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := set.EntityVector(1)
	if _, err := set.Transform(b, 0); !errors.Is(err, ErrDegenerate) {
		t.Errorf("err = %v, want ErrDegenerate", err)
	}
}

func TestSimilarity(t *testing.T) {
	set := loadScenario(t)
	a, _ := set.EntityVector(0)
	v, _ := set.Transform(a, 0)
	sims, err := set.ContextSimilarity(v)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 1, 0}
	for i := range want {
		if !approx(float64(sims[i]), float64(want[i])) {
			t.Errorf("context sim[%d] = %v, want %v", i, sims[i], want[i])
		}
	}
	ents, _ := set.EntitySimilarity(a)
	if !approx(float64(ents[0]), 1) || !approx(float64(ents[2]), -1) {
		t.Errorf("entity sims = %v", ents)
	}
	if _, err := set.ContextSimilarity([]float32{1}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestEntityVector_copy(t *testing.T) {
	set := loadScenario(t)
	v, _ := set.EntityVector(0)
	v[0] = 42
	again, _ := set.EntityVector(0)
	if again[0] != 1 {
		t.Errorf("EntityVector exposed internal storage")
	}
}

