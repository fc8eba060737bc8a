package lexicon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	ents := writeFile(t, dir, "vocab_entity.txt", "A\t10.0\nB\t5.0\nC\t1.0\n")
	rels := writeFile(t, dir, "vocab_relation.txt", "r\t7.0\ns\t2.0\n")

	lex, err := Load(ents, rels)
	if err != nil {
		t.Fatal(err)
	}
	if lex.NumEntities() != 3 || lex.NumBaseRelations() != 2 || lex.NumRelations() != 4 {
		t.Fatalf("sizes: E=%d R=%d 2R=%d", lex.NumEntities(), lex.NumBaseRelations(), lex.NumRelations())
	}
	for i, name := range []string{"A", "B", "C"} {
		id, err := lex.EntityID(name)
		if err != nil || id != i {
			t.Errorf("EntityID(%s) = %d, %v; want %d", name, id, err, i)
		}
		if lex.EntityName(i) != name {
			t.Errorf("EntityName(%d) = %s, want %s", i, lex.EntityName(i), name)
		}
	}
	want := []string{"r_forward", "s_forward", "r_backward", "s_backward"}
	for i, name := range want {
		if lex.RelationName(i) != name {
			t.Errorf("RelationName(%d) = %s, want %s", i, lex.RelationName(i), name)
		}
	}
}

func TestDirectedID(t *testing.T) {
	lex, err := New([]string{"A", "B", "C"}, []string{"r"})
	if err != nil {
		t.Fatal(err)
	}
	fwd, err := lex.DirectedID("r", Forward)
	if err != nil || fwd != 0 {
		t.Errorf("forward id = %d, %v", fwd, err)
	}
	bwd, err := lex.DirectedID("r", Backward)
	if err != nil || bwd != 1 {
		t.Errorf("backward id = %d, %v", bwd, err)
	}
	if _, err := lex.DirectedID("q", Forward); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown base relation: got %v", err)
	}
}

func TestRelationID_spellings(t *testing.T) {
	lex, _ := New([]string{"A"}, []string{"r", "s"})
	tests := []struct {
		name string
		want int
	}{
		{"r_forward", 0},
		{"s_forward", 1},
		{"r_backward", 2},
		{"s_backward", 3},
		{"r>", 0},
		{"s<", 3},
	}
	for _, tt := range tests {
		got, err := lex.RelationID(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("RelationID(%q) = %d, %v; want %d", tt.name, got, err, tt.want)
		}
	}
	for _, bad := range []string{"r", "q_forward", ""} {
		if _, err := lex.RelationID(bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("RelationID(%q): expected ErrNotFound, got %v", bad, err)
		}
	}
}

func TestLookupError(t *testing.T) {
	lex, _ := New([]string{"A"}, nil)
	_, err := lex.EntityID("Z")
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LookupError, got %T", err)
	}
	if le.Kind != "entity" || le.Name != "Z" {
		t.Errorf("got %+v", le)
	}
	if lex.HasEntity("Z") || !lex.HasEntity("A") {
		t.Error("HasEntity mismatch")
	}
	if lex.EntityName(-1) != "" || lex.EntityName(5) != "" {
		t.Error("out-of-range EntityName should be empty")
	}
}

func TestLoad_duplicateName(t *testing.T) {
	dir := t.TempDir()
	ents := writeFile(t, dir, "e.txt", "A\t1\nB\t1\nA\t1\n")
	rels := writeFile(t, dir, "r.txt", "r\t1\n")
	_, err := Load(ents, rels)
	var lexErr *LexiconError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexiconError, got %v", err)
	}
	if lexErr.Name != "A" || lexErr.Index != 2 {
		t.Errorf("got %+v", lexErr)
	}
}

func TestNew_duplicateRelation(t *testing.T) {
	_, err := New([]string{"A"}, []string{"r", "r"})
	var lexErr *LexiconError
	if !errors.As(err, &lexErr) || lexErr.Kind != "relation" {
		t.Fatalf("expected relation LexiconError, got %v", err)
	}
}

func TestNew_directedNameClash(t *testing.T) {
	tests := []struct {
		bases []string
		name  string
		index int
	}{
		{[]string{"x", "x_forward"}, "x_forward", 1},
		{[]string{"x_backward", "x"}, "x_backward", 0},
		{[]string{"x", "x>"}, "x>", 1},
		{[]string{"x<", "y", "x"}, "x<", 0},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.bases, ","), func(t *testing.T) {
			_, err := New([]string{"A"}, tt.bases)
			var lexErr *LexiconError
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *LexiconError, got %v", err)
			}
			if lexErr.Kind != "relation" || lexErr.Name != tt.name || lexErr.Index != tt.index {
				t.Errorf("got %+v", lexErr)
			}
			if !strings.Contains(err.Error(), `relation "x"`) {
				t.Errorf("error = %q", err)
			}
		})
	}

	lex, err := New([]string{"A"}, []string{"x_forward", "y>"})
	if err != nil {
		t.Fatalf("directed-looking names without their base: %v", err)
	}
	if rid, err := lex.ResolveRelation("x_forward"); err != nil || rid != 0 {
		t.Errorf("ResolveRelation(x_forward) = %d, %v", rid, err)
	}
}

func TestLoad_blankLines(t *testing.T) {
	dir := t.TempDir()
	rels := writeFile(t, dir, "r.txt", "r\t1\n\n")

	ents := writeFile(t, dir, "trailing.txt", "A\t1\nB\t1\n\n\r\n")
	lex, err := Load(ents, rels)
	if err != nil {
		t.Fatal(err)
	}
	if lex.NumEntities() != 2 || lex.NumBaseRelations() != 1 {
		t.Errorf("NumEntities = %d, NumBaseRelations = %d", lex.NumEntities(), lex.NumBaseRelations())
	}

	tests := []struct {
		name    string
		content string
		index   int
	}{
		{"interior blank line", "A\t1\n\nB\t1\n", 1},
		{"leading blank line", "\nA\t1\n", 0},
		{"empty name", "A\t1\n\t3\nB\t1\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ents := writeFile(t, t.TempDir(), "e.txt", tt.content)
			_, err := Load(ents, rels)
			var lexErr *LexiconError
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *LexiconError, got %v", err)
			}
			if lexErr.Kind != "entity" || lexErr.Index != tt.index || lexErr.Reason == "" {
				t.Errorf("got %+v", lexErr)
			}
		})
	}
}

func TestSplitDirected(t *testing.T) {
	base, dir, ok := SplitDirected("born_in_backward")
	if !ok || base != "born_in" || dir != Backward {
		t.Errorf("got %q %v %v", base, dir, ok)
	}
	if _, _, ok := SplitDirected("born_in"); ok {
		t.Error("undirected name should not split")
	}
	if Forward.Suffix() != "_forward" || Backward.String() != "backward" {
		t.Error("direction naming mismatch")
	}
}

func TestResolveRelation(t *testing.T) {
	lex, err := New([]string{"A"}, []string{"r", "s"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		want int
	}{
		{"r", 0},
		{"s", 1},
		{"r_forward", 0},
		{"s_backward", 3},
		{"s<", 3},
	}
	for _, tt := range tests {
		got, err := lex.ResolveRelation(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ResolveRelation(%q) = %d, %v; want %d", tt.name, got, err, tt.want)
		}
	}
	if _, err := lex.ResolveRelation("t"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveRelation(t) error = %v, want ErrNotFound", err)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": Forward, "forward": Forward, ">": Forward, "backward": Backward, "<": Backward} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Error("ParseDirection(up) = nil error")
	}
}
