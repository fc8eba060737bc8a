// Package embedding holds the trained parameters of a knowledge-base
// embedding model and the read-only queries over them.
package embedding

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/vector"
	"github.com/hyperjump/kbeval/pkg/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Model file names written by the trainer.
const (
	EntityVectorsFile    = "tvecs.npy"
	RelationMatricesFile = "mats.npy"
	ContextVectorsFile   = "cvecs.npy"
	EntityStepsFile      = "vsteps.npy"
	RelationStepsFile    = "msteps.npy"
	EncoderFile          = "encoder.npy"
	DecoderFile          = "decoder.npy"
	DecoderStepFile      = "dstep.npy"
	ParamsFile           = "params.json"
)

// Hyperparameters is the trainer's params.json record. VEL and AutoEL are
// required; everything else is kept for display.
type Hyperparameters struct {
	VEL    *float64       `yaml:"vEL" json:"vEL"`
	AutoEL *float64       `yaml:"autoEL" json:"autoEL"`
	Extra  map[string]any `yaml:",inline" json:"-"`
}

// LoadHyperparameters reads params.json. JSON is decoded with the YAML
// decoder, which accepts it as a subset.
func LoadHyperparameters(path string) (Hyperparameters, error) {
	var hp Hyperparameters
	data, err := os.ReadFile(path)
	if err != nil {
		return hp, &LoadError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, &hp); err != nil {
		return hp, &LoadError{Path: path, Err: err}
	}
	if hp.VEL == nil {
		return hp, &LoadError{Path: path, Err: errors.New("missing vEL")}
	}
	if hp.AutoEL == nil {
		return hp, &LoadError{Path: path, Err: errors.New("missing autoEL")}
	}
	return hp, nil
}

// Arrays is the raw, un-normalized content of a model directory. NewEmbeddingSet
// takes ownership of the slices and normalizes them in place.
type Arrays struct {
	Dim              int
	EntityVectors    []float32 // E*D
	RelationMatrices []float32 // 2R*D*D, forward block then backward block
	ContextVectors   []float32 // E*D
	EntitySteps      []uint64  // at least E; only the first E are used
	RelationSteps    []uint64  // 2R, nil means all zero
	Encoder          []float32 // K*D*D, optional
	Decoder          []float32 // K*D*D, optional
	DecoderStep      uint64
	Params           Hyperparameters
}

// EmbeddingSet is the immutable, normalized parameter store. It is safe for
// concurrent readers.
type EmbeddingSet struct {
	lex      *lexicon.Lexicon
	dim      int
	entities *vector.Matrix // E x D, unit rows
	contexts *vector.Matrix // E x D
	mats     *vector.Stack  // 2R x D x D, squared Frobenius norm D
	flat     *mat.Dense     // 2R x D², mats one per row
	msteps   []uint64
	vsteps   []uint64
	encoder  *mat.Dense // K x D², nil without autoencoder
	decoder  *mat.Dense
	dstep    uint64
	params   Hyperparameters
}

// Load reads and normalizes the model stored in dir, validating every array
// against lex.
func Load(dir string, lex *lexicon.Lexicon, logger *zap.Logger) (*EmbeddingSet, error) {
	logger = utils.LoggerOrNop(logger)
	e, r2 := lex.NumEntities(), lex.NumRelations()

	params, err := LoadHyperparameters(filepath.Join(dir, ParamsFile))
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, EntityVectorsFile)
	tvecs, err := readFloats(path)
	if err != nil {
		return nil, err
	}
	if !tvecs.hasShape(e, -1) || tvecs.shape[1] == 0 {
		return nil, shapeError(path, tvecs.shape, e, -1)
	}
	d := tvecs.shape[1]

	path = filepath.Join(dir, RelationMatricesFile)
	mats, err := readFloats(path)
	if err != nil {
		return nil, err
	}
	if !mats.hasShape(r2, d, d) {
		return nil, shapeError(path, mats.shape, r2, d, d)
	}

	path = filepath.Join(dir, ContextVectorsFile)
	cvecs, err := readFloats(path)
	if err != nil {
		return nil, err
	}
	if !cvecs.hasShape(e, d) {
		return nil, shapeError(path, cvecs.shape, e, d)
	}

	path = filepath.Join(dir, EntityStepsFile)
	vsteps, err := readCounts(path)
	if err != nil {
		return nil, err
	}
	if len(vsteps.shape) != 1 || vsteps.shape[0] < e {
		return nil, shapeError(path, vsteps.shape, e)
	}

	a := Arrays{
		Dim:              d,
		EntityVectors:    tvecs.data,
		RelationMatrices: mats.data,
		ContextVectors:   cvecs.data,
		EntitySteps:      vsteps.data,
		Params:           params,
	}

	path = filepath.Join(dir, RelationStepsFile)
	if exists(path) {
		msteps, err := readCounts(path)
		if err != nil {
			return nil, err
		}
		if !msteps.hasShape(r2) {
			return nil, shapeError(path, msteps.shape, r2)
		}
		a.RelationSteps = msteps.data
	}

	encPath, decPath := filepath.Join(dir, EncoderFile), filepath.Join(dir, DecoderFile)
	if exists(encPath) || exists(decPath) {
		enc, err := readFloats(encPath)
		if err != nil {
			return nil, err
		}
		if !enc.hasShape(-1, d, d) {
			return nil, shapeError(encPath, enc.shape, -1, d, d)
		}
		dec, err := readFloats(decPath)
		if err != nil {
			return nil, err
		}
		if !dec.hasShape(enc.shape[0], d, d) {
			return nil, shapeError(decPath, dec.shape, enc.shape[0], d, d)
		}
		a.Encoder, a.Decoder = enc.data, dec.data

		path = filepath.Join(dir, DecoderStepFile)
		if exists(path) {
			dstep, err := readCounts(path)
			if err != nil {
				return nil, err
			}
			if dstep.size() != 1 {
				return nil, shapeError(path, dstep.shape)
			}
			a.DecoderStep = dstep.data[0]
		}
	}

	set, err := NewEmbeddingSet(lex, a)
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}
	logger.Info("Model loaded",
		zap.String("dir", dir),
		zap.Int("entities", e),
		zap.Int("relations", r2),
		zap.Int("dim", d),
		zap.Int("code_len", set.CodeLen()))
	return set, nil
}

// NewEmbeddingSet validates a against lex and normalizes it: unit entity
// rows, relation matrices rescaled to squared Frobenius norm D, context rows
// and autoencoder weights decayed by their step counts.
func NewEmbeddingSet(lex *lexicon.Lexicon, a Arrays) (*EmbeddingSet, error) {
	e, r2, d := lex.NumEntities(), lex.NumRelations(), a.Dim
	if d <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", d)
	}
	if a.Params.VEL == nil || a.Params.AutoEL == nil {
		return nil, errors.New("hyperparameters must set vEL and autoEL")
	}

	entities, err := vector.NewMatrix(e, d, a.EntityVectors)
	if err != nil {
		return nil, fmt.Errorf("entity vectors: %w", err)
	}
	for i := 0; i < e; i++ {
		if n := utils.NormalizeL2(entities.Row(i)); !finitePositive(n) {
			return nil, fmt.Errorf("entity %q: %w", lex.EntityName(i), ErrDegenerate)
		}
	}

	mats, err := vector.NewStack(r2, d, d, a.RelationMatrices)
	if err != nil {
		return nil, fmt.Errorf("relation matrices: %w", err)
	}
	for k := 0; k < r2; k++ {
		m := mats.At(k)
		norm := mat.Norm(m.Dense(), 2)
		if !finitePositive(norm) {
			return nil, fmt.Errorf("relation %q: %w", lex.RelationName(k), ErrDegenerate)
		}
		utils.Scale(m.Data(), math.Sqrt(float64(d))/norm)
	}

	contexts, err := vector.NewMatrix(e, d, a.ContextVectors)
	if err != nil {
		return nil, fmt.Errorf("context vectors: %w", err)
	}
	if len(a.EntitySteps) < e {
		return nil, fmt.Errorf("entity steps: %d values, want at least %d", len(a.EntitySteps), e)
	}
	vsteps := append([]uint64(nil), a.EntitySteps[:e]...)
	for i := 0; i < e; i++ {
		utils.Scale(contexts.Row(i), 1/(1+float64(vsteps[i])*(*a.Params.VEL)))
	}

	msteps := a.RelationSteps
	if msteps == nil {
		msteps = make([]uint64, r2)
	}
	if len(msteps) != r2 {
		return nil, fmt.Errorf("relation steps: %d values, want %d", len(msteps), r2)
	}

	s := &EmbeddingSet{
		lex:      lex,
		dim:      d,
		entities: entities,
		contexts: contexts,
		mats:     mats,
		msteps:   msteps,
		vsteps:   vsteps,
		dstep:    a.DecoderStep,
		params:   a.Params,
	}
	if r2 > 0 {
		s.flat = mats.Flat().Dense()
	}

	if a.Encoder != nil || a.Decoder != nil {
		d2 := d * d
		if len(a.Encoder) == 0 || len(a.Encoder)%d2 != 0 || len(a.Decoder) != len(a.Encoder) {
			return nil, fmt.Errorf("autoencoder: encoder %d and decoder %d values, want equal multiples of %d",
				len(a.Encoder), len(a.Decoder), d2)
		}
		k := len(a.Encoder) / d2
		decay := 1 / (1 + float64(a.DecoderStep)*(*a.Params.AutoEL))
		utils.Scale(a.Encoder, decay)
		utils.Scale(a.Decoder, decay)
		if s.encoder, err = vector.NewDense(k, d2, a.Encoder); err != nil {
			return nil, fmt.Errorf("encoder: %w", err)
		}
		if s.decoder, err = vector.NewDense(k, d2, a.Decoder); err != nil {
			return nil, fmt.Errorf("decoder: %w", err)
		}
	}
	return s, nil
}

// Lexicon returns the lexicon the set was validated against.
func (s *EmbeddingSet) Lexicon() *lexicon.Lexicon { return s.lex }

// Dim returns the embedding dimension D.
func (s *EmbeddingSet) Dim() int { return s.dim }

// CodeLen returns the autoencoder code length K, or 0 without an autoencoder.
func (s *EmbeddingSet) CodeLen() int {
	if s.encoder == nil {
		return 0
	}
	k, _ := s.encoder.Dims()
	return k
}

// Params returns the hyperparameter record.
func (s *EmbeddingSet) Params() Hyperparameters { return s.params }

// EntityVector returns a copy of the unit vector for entity id.
func (s *EmbeddingSet) EntityVector(id int) ([]float32, error) {
	if id < 0 || id >= s.entities.Rows() {
		return nil, &lexicon.LookupError{Kind: "entity", Name: fmt.Sprintf("#%d", id)}
	}
	return append([]float32(nil), s.entities.Row(id)...), nil
}

// RelationMatrix returns the normalized matrix of a directed relation. The
// result shares storage with the set and must not be modified.
func (s *EmbeddingSet) RelationMatrix(rid int) (*vector.Matrix, error) {
	if rid < 0 || rid >= s.mats.Len() {
		return nil, &lexicon.LookupError{Kind: "relation", Name: fmt.Sprintf("#%d", rid)}
	}
	return s.mats.At(rid), nil
}

// RelationSteps returns the number of training updates of a directed relation.
func (s *EmbeddingSet) RelationSteps(rid int) uint64 {
	if rid < 0 || rid >= len(s.msteps) {
		return 0
	}
	return s.msteps[rid]
}

// EntitySteps returns the number of training updates of an entity's context vector.
func (s *EmbeddingSet) EntitySteps(id int) uint64 {
	if id < 0 || id >= len(s.vsteps) {
		return 0
	}
	return s.vsteps[id]
}

// Transform applies directed relation rid to v and renormalizes the result to
// unit length.
func (s *EmbeddingSet) Transform(v []float32, rid int) ([]float32, error) {
	m, err := s.RelationMatrix(rid)
	if err != nil {
		return nil, err
	}
	out, err := m.MulVec(v)
	if err != nil {
		return nil, err
	}
	if n := utils.NormalizeL2(out); !finitePositive(n) {
		return nil, fmt.Errorf("transform by %q: %w", s.lex.RelationName(rid), ErrDegenerate)
	}
	return out, nil
}

// ContextSimilarity returns the dot product of v with every context vector.
func (s *EmbeddingSet) ContextSimilarity(v []float32) ([]float32, error) {
	return s.contexts.MulVec(v)
}

// EntitySimilarity returns the dot product of v with every entity vector.
func (s *EmbeddingSet) EntitySimilarity(v []float32) ([]float32, error) {
	return s.entities.MulVec(v)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}
