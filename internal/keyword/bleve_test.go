package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newMemIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	ctx := context.Background()
	if err := idx.Index(ctx, KindEntity, []string{"Barack_Obama", "Michelle_Obama", "Paris", "France"}); err != nil {
		t.Fatalf("Index entities: %v", err)
	}
	if err := idx.Index(ctx, KindRelation, []string{"capital_of_forward", "capital_of_backward"}); err != nil {
		t.Fatalf("Index relations: %v", err)
	}
	return idx
}

func names(results []*NameResult) map[string]bool {
	out := make(map[string]bool, len(results))
	for _, r := range results {
		out[r.Name] = true
	}
	return out
}

func TestBleveIndex_SearchByWord(t *testing.T) {
	idx := newMemIndex(t)

	results, err := idx.Search(context.Background(), "obama", KindEntity, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := names(results)
	if len(got) != 2 || !got["Barack_Obama"] || !got["Michelle_Obama"] {
		t.Errorf("Search(obama) = %v", got)
	}
	for _, r := range results {
		if r.Kind != KindEntity {
			t.Errorf("result %q has kind %q", r.Name, r.Kind)
		}
	}
}

func TestBleveIndex_SearchFuzzy(t *testing.T) {
	idx := newMemIndex(t)

	results, err := idx.Search(context.Background(), "Pariss", KindEntity, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !names(results)["Paris"] {
		t.Errorf("Search(Pariss) = %v, want Paris", names(results))
	}

	noFuzzy := &SearchOptions{FuzzyEnabled: false}
	results, err = idx.Search(context.Background(), "Pariss", KindEntity, 10, noFuzzy)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search(Pariss) without fuzzy = %v, want none", names(results))
	}
}

func TestBleveIndex_SearchFiltersKind(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "capital", KindRelation, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := names(results)
	if len(got) != 2 || !got["capital_of_forward"] || !got["capital_of_backward"] {
		t.Errorf("Search(capital, relation) = %v", got)
	}

	results, err = idx.Search(ctx, "capital", KindEntity, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search(capital, entity) = %v, want none", names(results))
	}
}

func TestBleveIndex_SearchEmpty(t *testing.T) {
	idx := newMemIndex(t)
	results, err := idx.Search(context.Background(), "__", KindEntity, 10, nil)
	if err != nil || results != nil {
		t.Errorf("Search(__) = %v, %v; want nil, nil", results, err)
	}
}

func TestBleveIndex_ReopenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.bleve")

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx.Index(context.Background(), KindEntity, []string{"A", "B", "A"}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 2 {
		t.Errorf("DocCount = %d, want 2", count)
	}
}

func TestTokenizeName(t *testing.T) {
	got := tokenizeName("/people/person.Nationality_forward")
	want := []string{"people", "person", "nationality", "forward"}
	if len(got) != len(want) {
		t.Fatalf("tokenizeName = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
