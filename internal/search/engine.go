// Package search answers interactive queries against a loaded model:
// nearest neighbours of expressions, link completions, and relation
// inspection.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/expr"
	"github.com/hyperjump/kbeval/internal/keyword"
	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/ranking"
	"github.com/hyperjump/kbeval/internal/scoring"
	"github.com/hyperjump/kbeval/internal/vector"
)

// Engine runs queries over one embedding set.
type Engine struct {
	set       *embedding.EmbeddingSet
	evaluator *expr.Evaluator
	scorer    *scoring.Scorer
	suggester *keyword.Suggester
	defaultK  int
}

// RoleResponse is the inspection of one directed relation.
type RoleResponse struct {
	*embedding.RelationReport
	Similar []models.ScoredRelation `json:"similar_relations"`
}

// NewEngine creates an engine. suggester may be nil.
func NewEngine(
	set *embedding.EmbeddingSet,
	evaluator *expr.Evaluator,
	suggester *keyword.Suggester,
	defaultK int,
) *Engine {
	if defaultK <= 0 {
		defaultK = 20
	}
	return &Engine{
		set:       set,
		evaluator: evaluator,
		scorer:    scoring.New(set),
		suggester: suggester,
		defaultK:  defaultK,
	}
}

// Set returns the embedding set queried by the engine.
func (e *Engine) Set() *embedding.EmbeddingSet { return e.set }

// Neighbours evaluates an expression and lists the closest target vectors
// and the strongest context vectors.
func (e *Engine) Neighbours(ctx context.Context, req *models.CalcRequest) (*models.NeighboursResponse, error) {
	startTime := time.Now()
	if err := ProcessCalc(req, e.defaultK); err != nil {
		return nil, err
	}
	v, err := e.evaluator.Calc(req.Expr)
	if err != nil {
		return nil, err
	}

	var (
		targets  []models.ScoredEntity
		contexts []models.ScoredEntity
		errChan  = make(chan error, 2)
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sims, err := e.set.EntitySimilarity(v)
		if err != nil {
			errChan <- fmt.Errorf("target similarity failed: %w", err)
			return
		}
		targets = e.topEntities(sims, req.K)
	}()
	go func() {
		defer wg.Done()
		sims, err := e.set.ContextSimilarity(v)
		if err != nil {
			errChan <- fmt.Errorf("context similarity failed: %w", err)
			return
		}
		contexts = e.topEntities(sims, req.K)
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &models.NeighboursResponse{
		Query:       req.Expr,
		Targets:     targets,
		Contexts:    contexts,
		QueryTimeMS: time.Since(startTime).Milliseconds(),
	}, nil
}

// Score lists the best tails of (head, relation, ?), or the best heads
// when the request direction is backward. Relation may be a base name or
// a directed name; a directed name overrides the request direction.
func (e *Engine) Score(ctx context.Context, req *models.ScoreRequest) (*models.ScoreResponse, error) {
	startTime := time.Now()
	if err := ProcessScore(req, e.defaultK); err != nil {
		return nil, err
	}
	dir, err := lexicon.ParseDirection(req.Direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	lex := e.set.Lexicon()
	rid, err := lex.RelationID(req.Relation)
	if err != nil {
		rid, err = lex.DirectedID(req.Relation, dir)
		if err != nil {
			return nil, err
		}
	}
	hid, err := lex.EntityID(req.Head)
	if err != nil {
		return nil, err
	}
	scores, err := e.scorer.ScoreID(hid, rid)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &models.ScoreResponse{
		Head:        req.Head,
		Relation:    lex.RelationName(rid),
		Results:     e.topEntities(scores, req.K),
		QueryTimeMS: time.Since(startTime).Milliseconds(),
	}, nil
}

// Sim returns the cosine between two expression vectors.
func (e *Engine) Sim(ctx context.Context, req *models.SimRequest) (*models.SimResponse, error) {
	if err := ProcessSim(req); err != nil {
		return nil, err
	}
	left, err := e.evaluator.Calc(req.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.evaluator.Calc(req.Right)
	if err != nil {
		return nil, err
	}
	return &models.SimResponse{
		Left:       req.Left,
		Right:      req.Right,
		Similarity: vector.InnerProduct(left, right),
	}, nil
}

// Role inspects a relation and lists the k relations with the most similar matrices.
func (e *Engine) Role(ctx context.Context, name string, k int) (*RoleResponse, error) {
	rid, err := e.set.Lexicon().ResolveRelation(name)
	if err != nil {
		return nil, err
	}
	report, err := e.set.InspectRelation(rid)
	if err != nil {
		return nil, err
	}
	m, err := e.set.RelationMatrix(rid)
	if err != nil {
		return nil, err
	}
	sims, err := e.set.RelationSimilarity(m.Dense())
	if err != nil {
		return nil, err
	}
	return &RoleResponse{RelationReport: report, Similar: e.topRelations(sims, e.k(k))}, nil
}

// CompRole lists the k relations whose matrices are closest to the
// composition M_r1·M_r2.
func (e *Engine) CompRole(ctx context.Context, r1, r2 string, k int) ([]models.ScoredRelation, error) {
	id1, id2, err := e.resolvePair(r1, r2)
	if err != nil {
		return nil, err
	}
	mm, err := e.set.Compose(id1, id2)
	if err != nil {
		return nil, err
	}
	sims, err := e.set.RelationSimilarity(mm)
	if err != nil {
		return nil, err
	}
	return e.topRelations(sims, e.k(k)), nil
}

// CompRoleRank returns the rank of r among all relations by similarity to
// M_r1·M_r2, with ties sharing their mean position.
func (e *Engine) CompRoleRank(r1, r2, r string) (float64, error) {
	id1, id2, err := e.resolvePair(r1, r2)
	if err != nil {
		return 0, err
	}
	rid, err := e.set.Lexicon().ResolveRelation(r)
	if err != nil {
		return 0, err
	}
	return e.set.CompositeRank(id1, id2, rid)
}

// Suggest returns known names resembling the one an ErrNotFound error
// complains about. It returns nil for other errors or without a suggester.
func (e *Engine) Suggest(ctx context.Context, err error, n int) []string {
	var lookup *lexicon.LookupError
	if e.suggester == nil || !errors.As(err, &lookup) {
		return nil
	}
	kind := keyword.KindEntity
	if lookup.Kind == "relation" {
		kind = keyword.KindRelation
	}
	return e.suggester.Suggest(ctx, lookup.Name, kind, n)
}

func (e *Engine) resolvePair(r1, r2 string) (int, int, error) {
	lex := e.set.Lexicon()
	id1, err := lex.ResolveRelation(r1)
	if err != nil {
		return 0, 0, err
	}
	id2, err := lex.ResolveRelation(r2)
	if err != nil {
		return 0, 0, err
	}
	return id1, id2, nil
}

func (e *Engine) k(k int) int {
	if k <= 0 {
		k = e.defaultK
	}
	return min(k, models.MaxTopK)
}

func (e *Engine) topEntities(scores []float32, k int) []models.ScoredEntity {
	lex := e.set.Lexicon()
	top := ranking.Top(scores, k)
	out := make([]models.ScoredEntity, len(top))
	for i, s := range top {
		out[i] = models.ScoredEntity{Entity: lex.EntityName(s.ID), Score: float64(s.Score)}
	}
	return out
}

func (e *Engine) topRelations(scores []float32, k int) []models.ScoredRelation {
	lex := e.set.Lexicon()
	top := ranking.Top(scores, k)
	out := make([]models.ScoredRelation, len(top))
	for i, s := range top {
		out[i] = models.ScoredRelation{Relation: lex.RelationName(s.ID), Score: float64(s.Score)}
	}
	return out
}
