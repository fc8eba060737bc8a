// Package eval implements filtered link-prediction evaluation: correct triple
// indexing, per-triple ranking, metric aggregation and run statistics.
package eval

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/ranking"
	"github.com/hyperjump/kbeval/internal/scoring"
	"github.com/hyperjump/kbeval/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTopK is the number of top entities recorded per prediction.
const DefaultTopK = 10

// Options control an Evaluator.
type Options struct {
	// Adjust skips triples with an out-of-vocabulary head or tail. Otherwise
	// the missing side is substituted from MostFrequentHead/MostFrequentTail.
	Adjust           bool
	MostFrequentHead map[string]string
	MostFrequentTail map[string]string
	// StoreDetail records per-instance ranking detail.
	StoreDetail bool
	TopK        int
	Workers     int
	// Split names the evaluated split in errors.
	Split string
}

// Evaluator computes filtered ranks for a list of test triples. It is not
// safe for concurrent use; Evaluate parallelizes internally.
type Evaluator struct {
	lex     *lexicon.Lexicon
	index   *CorrectTripleIndex
	scorer  *scoring.Scorer
	opts    Options
	logger  *zap.Logger
	ranks   []int
	details []models.RankingDetail
	skipped int
}

// New returns an Evaluator filtering with index and scoring with scorer.
func New(index *CorrectTripleIndex, lex *lexicon.Lexicon, scorer *scoring.Scorer, opts Options, logger *zap.Logger) *Evaluator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Evaluator{
		lex:    lex,
		index:  index,
		scorer: scorer,
		opts:   opts,
		logger: utils.LoggerOrNop(logger),
	}
}

// Reset clears accumulated ranks, details and the skip count.
func (e *Evaluator) Reset() {
	e.ranks = nil
	e.details = nil
	e.skipped = 0
}

type outcome struct {
	ranks   [2]int
	detail  *models.RankingDetail
	skipped bool
}

// Evaluate resets the evaluator and ranks every triple: the tail given
// (head, relation) and the head given (relation, tail). Results keep input
// order regardless of Workers.
func (e *Evaluator) Evaluate(ctx context.Context, triples []models.Triple) error {
	e.Reset()
	results := make([]outcome, len(triples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, t := range triples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := e.evaluateOne(t)
			if err != nil {
				return fmt.Errorf("triple %d (%s): %w", i+1, t, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, out := range results {
		if out.skipped {
			e.skipped++
			continue
		}
		e.ranks = append(e.ranks, out.ranks[0], out.ranks[1])
		if out.detail != nil {
			e.details = append(e.details, *out.detail)
		}
	}
	e.logger.Debug("Evaluation finished",
		zap.Int("triples", len(triples)),
		zap.Int("skipped", e.skipped),
		zap.Int("ranks", len(e.ranks)))
	return nil
}

func (e *Evaluator) evaluateOne(t models.Triple) (outcome, error) {
	headOOV := !e.lex.HasEntity(t.Head)
	tailOOV := !e.lex.HasEntity(t.Tail)
	if (headOOV || tailOOV) && e.opts.Adjust {
		return outcome{skipped: true}, nil
	}

	out, err := e.rankBoth(t, headOOV, tailOOV)
	if errors.Is(err, lexicon.ErrNotFound) {
		e.logger.Warn("Skipping triple", zap.String("triple", t.String()), zap.Error(err))
		return outcome{skipped: true}, nil
	}
	return out, err
}

func (e *Evaluator) rankBoth(t models.Triple, headOOV, tailOOV bool) (outcome, error) {
	var out outcome
	head, tail := t.Head, t.Tail
	var err error
	if headOOV {
		if head, err = substitute(e.opts.MostFrequentHead, "head", t.Relation); err != nil {
			return out, err
		}
	}
	if tailOOV {
		if tail, err = substitute(e.opts.MostFrequentTail, "tail", t.Relation); err != nil {
			return out, err
		}
	}

	tailPred, tailRank, err := e.predict(head, t.Relation, lexicon.Forward, t.Tail, e.index.Tails(head, t.Relation))
	if err != nil {
		return out, err
	}
	headPred, headRank, err := e.predict(tail, t.Relation, lexicon.Backward, t.Head, e.index.Heads(tail, t.Relation))
	if err != nil {
		return out, err
	}

	out.ranks = [2]int{tailRank, headRank}
	if e.opts.StoreDetail {
		out.detail = &models.RankingDetail{
			Instance:       t,
			TailPrediction: tailPred,
			HeadPrediction: headPred,
		}
	}
	return out, nil
}

// predict scores completions of query under relation in dir, filters the
// known correct answers other than target, and ranks target.
func (e *Evaluator) predict(query, relation string, dir lexicon.Direction, target string, known []string) (models.Prediction, int, error) {
	var pred models.Prediction
	scores, err := e.scorer.Score(query, relation, dir)
	if err != nil {
		return pred, 0, err
	}

	targetID := -1
	if id, err := e.lex.EntityID(target); err == nil {
		targetID = id
	}
	excluded := make([]int, 0, len(known))
	for _, name := range known {
		if id, err := e.lex.EntityID(name); err == nil {
			excluded = append(excluded, id)
		}
	}
	ranking.Exclude(scores, excluded, targetID)

	var rank int
	if targetID >= 0 {
		rank = ranking.Rank(scores, targetID)
	} else {
		rank = ranking.RankUnknown(scores)
	}

	if e.opts.StoreDetail {
		pred.Target.Rank = rank
		if targetID >= 0 {
			s := float64(scores[targetID])
			pred.Target.Score = &s
		}
		pred.Top10 = e.top(scores)
	}
	return pred, rank, nil
}

// top returns the best TopK entities, leaving out filtered ones.
func (e *Evaluator) top(scores []float32) []models.ScoredEntity {
	k := ranking.NewTopK(e.opts.TopK)
	for id, s := range scores {
		if !math.IsInf(float64(s), -1) {
			k.Push(id, s)
		}
	}
	best := k.Sorted()
	out := make([]models.ScoredEntity, len(best))
	for i, b := range best {
		out[i] = models.ScoredEntity{Entity: e.lex.EntityName(b.ID), Score: float64(b.Score)}
	}
	return out
}

// Ranks returns the pooled tail and head ranks in evaluation order.
func (e *Evaluator) Ranks() []int { return e.ranks }

// Details returns the recorded ranking detail, if StoreDetail is set.
func (e *Evaluator) Details() []models.RankingDetail { return e.details }

// Skipped returns the number of triples left out of the last evaluation.
func (e *Evaluator) Skipped() int { return e.skipped }

// Metrics aggregates the accumulated ranks.
func (e *Evaluator) Metrics() (ranking.Metrics, error) {
	m, err := ranking.Aggregate(e.ranks)
	if err != nil {
		return m, &EvaluationError{Split: e.opts.Split, Err: err}
	}
	return m, nil
}
