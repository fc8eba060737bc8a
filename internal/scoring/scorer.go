// Package scoring answers link-prediction queries against an embedding set.
package scoring

import (
	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/lexicon"
)

// Scorer scores every entity as the completion of a (head, relation, ?) query.
type Scorer struct {
	set *embedding.EmbeddingSet
}

// New returns a Scorer over set.
func New(set *embedding.EmbeddingSet) *Scorer {
	return &Scorer{set: set}
}

// Set returns the underlying embedding set.
func (s *Scorer) Set() *embedding.EmbeddingSet { return s.set }

// Score returns one score per entity for completing head under baseRelation
// in direction dir. For Backward, head plays the role of the known tail.
func (s *Scorer) Score(head, baseRelation string, dir lexicon.Direction) ([]float32, error) {
	lex := s.set.Lexicon()
	hid, err := lex.EntityID(head)
	if err != nil {
		return nil, err
	}
	rid, err := lex.DirectedID(baseRelation, dir)
	if err != nil {
		return nil, err
	}
	return s.ScoreID(hid, rid)
}

// ScoreID is Score for resolved entity and directed relation ids: the context
// similarity of the transformed entity vector.
func (s *Scorer) ScoreID(entity, relation int) ([]float32, error) {
	v, err := s.set.EntityVector(entity)
	if err != nil {
		return nil, err
	}
	v, err = s.set.Transform(v, relation)
	if err != nil {
		return nil, err
	}
	return s.set.ContextSimilarity(v)
}
