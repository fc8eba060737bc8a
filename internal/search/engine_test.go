package search

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/expr"
	"github.com/hyperjump/kbeval/internal/keyword"
	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/testutil"
)

func newTestEngine(t *testing.T, withSuggester bool) *Engine {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteModel(t, dir, testutil.Scenario())
	lex, err := lexicon.New([]string{"A", "B", "C"}, []string{"r"})
	if err != nil {
		t.Fatal(err)
	}
	set, err := embedding.Load(dir, lex, nil)
	if err != nil {
		t.Fatal(err)
	}
	var sg *keyword.Suggester
	if withSuggester {
		sg, err = keyword.NewSuggester(context.Background(), lex, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
	}
	return NewEngine(set, expr.NewEvaluator(set, expr.DefaultCacheSize, nil), sg, 20)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestEngine_Neighbours(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	resp, err := e.Neighbours(ctx, &models.CalcRequest{Expr: " A ", K: 2})
	if err != nil {
		t.Fatalf("Neighbours: %v", err)
	}
	if resp.Query != "A" {
		t.Errorf("Query = %q, want trimmed A", resp.Query)
	}
	if len(resp.Targets) != 2 || resp.Targets[0].Entity != "A" || !near(resp.Targets[0].Score, 1) {
		t.Errorf("Targets = %+v", resp.Targets)
	}
	if len(resp.Contexts) != 2 || resp.Contexts[0].Entity != "A" {
		t.Errorf("Contexts = %+v", resp.Contexts)
	}

	resp, err = e.Neighbours(ctx, &models.CalcRequest{Expr: "trans(A, r)"})
	if err != nil {
		t.Fatalf("Neighbours: %v", err)
	}
	if len(resp.Targets) != 3 || resp.Targets[0].Entity != "B" {
		t.Errorf("trans(A, r) targets = %+v, want B first and default k", resp.Targets)
	}
}

func TestEngine_Neighbours_errors(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	if _, err := e.Neighbours(ctx, &models.CalcRequest{Expr: "  "}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty expr: err = %v, want ErrInvalidRequest", err)
	}
	if _, err := e.Neighbours(ctx, &models.CalcRequest{Expr: "A + Z"}); !errors.Is(err, lexicon.ErrNotFound) {
		t.Errorf("unknown entity: err = %v, want ErrNotFound", err)
	}
	if _, err := e.Neighbours(ctx, &models.CalcRequest{Expr: "A + C"}); !errors.Is(err, embedding.ErrDegenerate) {
		t.Errorf("opposite vectors: err = %v, want ErrDegenerate", err)
	}
}

func TestEngine_Score(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      models.ScoreRequest
		relation string
		best     string
	}{
		{"forward", models.ScoreRequest{Head: "A", Relation: "r"}, "r_forward", "B"},
		{"backward", models.ScoreRequest{Head: "B", Relation: "r", Direction: "backward"}, "r_backward", "A"},
		{"directed name", models.ScoreRequest{Head: "B", Relation: "r_backward"}, "r_backward", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			resp, err := e.Score(ctx, &req)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if resp.Relation != tt.relation {
				t.Errorf("Relation = %q, want %q", resp.Relation, tt.relation)
			}
			if len(resp.Results) == 0 || resp.Results[0].Entity != tt.best || !near(resp.Results[0].Score, 1) {
				t.Errorf("Results = %+v, want %s first", resp.Results, tt.best)
			}
		})
	}

	if _, err := e.Score(ctx, &models.ScoreRequest{Head: "A", Relation: "r", Direction: "up"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("bad direction: err = %v", err)
	}
	if _, err := e.Score(ctx, &models.ScoreRequest{Head: "A", Relation: "q"}); !errors.Is(err, lexicon.ErrNotFound) {
		t.Errorf("unknown relation: err = %v", err)
	}
}

func TestEngine_Sim(t *testing.T) {
	e := newTestEngine(t, false)
	ctx := context.Background()

	tests := []struct {
		left, right string
		want        float64
	}{
		{"A", "C", -1},
		{"A", "B", 0},
		{"trans(A, r)", "B", 1},
	}
	for _, tt := range tests {
		resp, err := e.Sim(ctx, &models.SimRequest{Left: tt.left, Right: tt.right})
		if err != nil {
			t.Fatalf("Sim(%s ~ %s): %v", tt.left, tt.right, err)
		}
		if !near(resp.Similarity, tt.want) {
			t.Errorf("Sim(%s ~ %s) = %v, want %v", tt.left, tt.right, resp.Similarity, tt.want)
		}
	}
}

func TestEngine_Role(t *testing.T) {
	e := newTestEngine(t, false)

	resp, err := e.Role(context.Background(), "r", 2)
	if err != nil {
		t.Fatalf("Role: %v", err)
	}
	if resp.Relation != "r_forward" || resp.ID != 0 {
		t.Errorf("Role relation = %q (%d)", resp.Relation, resp.ID)
	}
	if !near(resp.Diagonal, 0) || !near(resp.NonDiagonal, math.Sqrt2) {
		t.Errorf("deformation = (%v, %v), want (sqrt2, 0)", resp.NonDiagonal, resp.Diagonal)
	}
	if len(resp.Code) != 0 {
		t.Errorf("Code = %v, want empty without an autoencoder", resp.Code)
	}
	want := []models.ScoredRelation{{Relation: "r_forward", Score: 1}, {Relation: "r_backward", Score: -1}}
	if len(resp.Similar) != 2 {
		t.Fatalf("Similar = %+v", resp.Similar)
	}
	for i := range want {
		if resp.Similar[i].Relation != want[i].Relation || !near(resp.Similar[i].Score, want[i].Score) {
			t.Errorf("Similar[%d] = %+v, want %+v", i, resp.Similar[i], want[i])
		}
	}

	resp, err = e.Role(context.Background(), "r", math.MaxInt)
	if err != nil {
		t.Fatalf("Role with max k: %v", err)
	}
	if len(resp.Similar) != 2 {
		t.Errorf("Similar with max k = %+v", resp.Similar)
	}
	if e.k(math.MaxInt) != models.MaxTopK || e.k(0) != 20 {
		t.Errorf("k clamp = %d, default = %d", e.k(math.MaxInt), e.k(0))
	}
}

func TestEngine_CompRole(t *testing.T) {
	e := newTestEngine(t, false)

	// Two quarter turns make a half turn, orthogonal to both relations.
	got, err := e.CompRole(context.Background(), "r_forward", "r_forward", 0)
	if err != nil {
		t.Fatalf("CompRole: %v", err)
	}
	if len(got) != 2 || !near(got[0].Score, 0) || !near(got[1].Score, 0) {
		t.Errorf("CompRole = %+v", got)
	}

	rank, err := e.CompRoleRank("r_forward", "r_backward", "r_forward")
	if err != nil {
		t.Fatalf("CompRoleRank: %v", err)
	}
	if rank != 1.5 {
		t.Errorf("CompRoleRank = %v, want 1.5", rank)
	}
	if _, err := e.CompRoleRank("r", "q", "r"); !errors.Is(err, lexicon.ErrNotFound) {
		t.Errorf("unknown relation: err = %v", err)
	}
}

func TestEngine_Suggest(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, true)

	_, err := e.Score(ctx, &models.ScoreRequest{Head: "Aa", Relation: "r"})
	got := e.Suggest(ctx, err, 3)
	if len(got) == 0 || got[0] != "A" {
		t.Errorf("Suggest = %v, want A first", got)
	}
	if got := e.Suggest(ctx, errors.New("other"), 3); got != nil {
		t.Errorf("Suggest(other) = %v, want nil", got)
	}

	bare := newTestEngine(t, false)
	if got := bare.Suggest(ctx, err, 3); got != nil {
		t.Errorf("Suggest without suggester = %v, want nil", got)
	}
}

func TestReadCompositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp.txt")
	testutil.WriteFile(t, path, "a\tb\tc\t0.5\t1\n\nd\te\tf\n")

	var got []Composition
	for c, err := range ReadCompositions(path) {
		if err != nil {
			t.Fatalf("ReadCompositions: %v", err)
		}
		got = append(got, c)
	}
	if len(got) != 2 || got[0] != (Composition{"a", "b", "c"}) || got[1].Target != "f" {
		t.Errorf("compositions = %+v", got)
	}

	testutil.WriteFile(t, path, "a\tb\n")
	for _, err := range ReadCompositions(path) {
		if err == nil {
			t.Error("short line: want error")
		}
	}
}
