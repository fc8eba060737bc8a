// Package runner evaluates trained model directories against a dataset and
// records each evaluation as a stored run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/kbeval/internal/config"
	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/eval"
	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/scoring"
	"github.com/hyperjump/kbeval/internal/storage"
	"go.uber.org/zap"
)

// Runner evaluates model directories that share one dataset and vocabulary.
// Evaluations are serialized; a Runner is safe for concurrent use.
type Runner struct {
	lex     *lexicon.Lexicon
	dataset *eval.Dataset
	storage storage.Storage // optional
	cfg     config.EvaluationConfig
	logger  *zap.Logger

	mu sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a logger for run progress.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithStorage records every completed run in s.
func WithStorage(s storage.Storage) RunnerOption {
	return func(r *Runner) { r.storage = s }
}

// NewRunner creates a runner over an already loaded lexicon and dataset.
func NewRunner(lex *lexicon.Lexicon, dataset *eval.Dataset, cfg config.EvaluationConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		lex:     lex,
		dataset: dataset,
		cfg:     cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Open loads the vocabulary and dataset named by cfg and returns a runner
// for them. Substitute maps are loaded only when evaluation does not adjust.
func Open(cfg *config.Config, opts ...RunnerOption) (*Runner, error) {
	lex, err := lexicon.Load(cfg.Dataset.EntityVocabPath(), cfg.Dataset.RelationVocabPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	ds, err := eval.LoadDataset(cfg.Dataset.Dir, !cfg.Evaluation.Adjust)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return NewRunner(lex, ds, cfg.Evaluation, opts...), nil
}

// Lexicon returns the vocabulary shared by all evaluated models.
func (r *Runner) Lexicon() *lexicon.Lexicon { return r.lex }

// Result is one completed evaluation.
type Result struct {
	Run *models.Run
	// DetailPath is where ranking detail was written; empty when dumping is off.
	DetailPath string
	Details    []models.RankingDetail
}

// Evaluate loads the model in modelDir, ranks the configured split, writes
// ranking detail next to the model and stores the run when storage is set.
func (r *Runner) Evaluate(ctx context.Context, modelDir string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if abs, err := filepath.Abs(modelDir); err == nil {
		modelDir = abs
	}
	start := time.Now()
	set, err := embedding.Load(modelDir, r.lex, r.logger)
	if err != nil {
		return nil, err
	}
	triples, err := r.dataset.Split(r.cfg.Split)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s split: %w", r.cfg.Split, err)
	}

	ev := eval.New(r.dataset.Index, r.lex, scoring.New(set), eval.Options{
		Adjust:           r.cfg.Adjust,
		MostFrequentHead: r.dataset.MostFrequentHead,
		MostFrequentTail: r.dataset.MostFrequentTail,
		StoreDetail:      true,
		TopK:             r.cfg.TopK,
		Workers:          r.cfg.Workers,
		Split:            r.cfg.Split,
	}, r.logger)
	if err := ev.Evaluate(ctx, triples); err != nil {
		return nil, err
	}
	m, err := ev.Metrics()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Run: &models.Run{
			ModelDir: modelDir,
			Split:    r.cfg.Split,
			Adjust:   r.cfg.Adjust,
			Metrics:  m,
			Skipped:  ev.Skipped(),
		},
		Details: ev.Details(),
	}
	if r.cfg.DumpRankingOrDefault() {
		res.DetailPath = eval.DetailPath(modelDir, r.cfg.Split)
		if err := eval.WriteDetails(res.DetailPath, res.Details); err != nil {
			return nil, fmt.Errorf("failed to write ranking detail: %w", err)
		}
	}
	if r.storage != nil {
		if err := r.storage.CreateRun(ctx, res.Run, models.RunRanksFromDetails(res.Details)); err != nil {
			return nil, fmt.Errorf("failed to store run: %w", err)
		}
	}
	r.logger.Info("model evaluated",
		zap.String("model_dir", modelDir),
		zap.String("split", r.cfg.Split),
		zap.Float64("mrr", m.MRR),
		zap.Int("skipped", res.Run.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// EvaluateCheckpoint is Evaluate for watcher callbacks: a directory whose
// arrays are still incomplete is logged at debug level and skipped.
func (r *Runner) EvaluateCheckpoint(ctx context.Context, modelDir string) {
	_, err := r.Evaluate(ctx, modelDir)
	if err == nil {
		return
	}
	var loadErr *embedding.LoadError
	if errors.As(err, &loadErr) {
		r.logger.Debug("checkpoint not ready", zap.String("model_dir", modelDir), zap.Error(err))
		return
	}
	r.logger.Warn("checkpoint evaluation failed", zap.String("model_dir", modelDir), zap.Error(err))
}
