package eval

import (
	"fmt"
	"iter"
	"strings"

	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/pkg/utils"
)

type pairKey struct {
	entity, relation string
}

// CorrectTripleIndex maps (head, relation) to every known tail and
// (tail, relation) to every known head over a set of correct triples.
type CorrectTripleIndex struct {
	seen  map[models.Triple]struct{}
	tails map[pairKey][]string
	heads map[pairKey][]string
}

// NewCorrectTripleIndex returns an empty index.
func NewCorrectTripleIndex() *CorrectTripleIndex {
	return &CorrectTripleIndex{
		seen:  make(map[models.Triple]struct{}),
		tails: make(map[pairKey][]string),
		heads: make(map[pairKey][]string),
	}
}

// Add records a correct triple. Duplicates are ignored.
func (x *CorrectTripleIndex) Add(t models.Triple) {
	if _, ok := x.seen[t]; ok {
		return
	}
	x.seen[t] = struct{}{}
	hk := pairKey{t.Head, t.Relation}
	tk := pairKey{t.Tail, t.Relation}
	x.tails[hk] = append(x.tails[hk], t.Tail)
	x.heads[tk] = append(x.heads[tk], t.Head)
}

// Tails returns the known tails of (head, relation). The slice must not be modified.
func (x *CorrectTripleIndex) Tails(head, relation string) []string {
	return x.tails[pairKey{head, relation}]
}

// Heads returns the known heads of (tail, relation). The slice must not be modified.
func (x *CorrectTripleIndex) Heads(tail, relation string) []string {
	return x.heads[pairKey{tail, relation}]
}

// Contains reports whether t was added.
func (x *CorrectTripleIndex) Contains(t models.Triple) bool {
	_, ok := x.seen[t]
	return ok
}

// Len returns the number of distinct triples.
func (x *CorrectTripleIndex) Len() int { return len(x.seen) }

// ReadTriples lazily parses a triple file, one triple per non-blank line.
func ReadTriples(path string) iter.Seq2[models.Triple, error] {
	return func(yield func(models.Triple, error) bool) {
		n := 0
		for line, err := range utils.Lines(path) {
			n++
			if err != nil {
				yield(models.Triple{}, err)
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			t, err := models.ParseTriple(line)
			if err != nil {
				yield(models.Triple{}, fmt.Errorf("%s:%d: %w", path, n, err))
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// LoadTriples reads every triple of a file.
func LoadTriples(path string) ([]models.Triple, error) {
	var out []models.Triple
	for t, err := range ReadTriples(path) {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
