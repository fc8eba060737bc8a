package expr

import (
	"fmt"
	"math"

	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/vector"
	"github.com/hyperjump/kbeval/pkg/utils"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of evaluated expressions kept by NewEvaluator.
const DefaultCacheSize = 256

// Evaluator computes expression vectors over an embedding set.
type Evaluator struct {
	set    *embedding.EmbeddingSet
	cache  *embedding.VectorCache
	logger *zap.Logger
}

// NewEvaluator returns an Evaluator caching up to cacheSize results.
func NewEvaluator(set *embedding.EmbeddingSet, cacheSize int, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		set:    set,
		cache:  embedding.NewVectorCache(cacheSize),
		logger: utils.LoggerOrNop(logger),
	}
}

// Calc parses and evaluates text.
func (e *Evaluator) Calc(text string) ([]float32, error) {
	n, err := Parse(text, e.logger)
	if err != nil {
		return nil, err
	}
	key := n.String()
	if v, ok := e.cache.Get(key); ok {
		return v, nil
	}
	v, err := e.Eval(n)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, v)
	return v, nil
}

// Eval evaluates a parsed expression: entity vectors at the leaves, relation
// transforms, and unit-normalized sums.
func (e *Evaluator) Eval(n Node) ([]float32, error) {
	lex := e.set.Lexicon()
	switch n := n.(type) {
	case Leaf:
		id, err := lex.EntityID(n.Entity)
		if err != nil {
			return nil, err
		}
		return e.set.EntityVector(id)
	case Transform:
		rid, err := lex.ResolveRelation(n.Relation)
		if err != nil {
			return nil, err
		}
		arg, err := e.Eval(n.Arg)
		if err != nil {
			return nil, err
		}
		return e.set.Transform(arg, rid)
	case Sum:
		out := make([]float32, e.set.Dim())
		for _, term := range n.Terms {
			v, err := e.Eval(term)
			if err != nil {
				return nil, err
			}
			vector.Add(out, v)
		}
		if norm := utils.NormalizeL2(out); !(norm > 0) || math.IsInf(norm, 0) {
			return nil, fmt.Errorf("sum %q: %w", n.String(), embedding.ErrDegenerate)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown expression node %T", n)
	}
}
