package embedding

import (
	"fmt"
	"math"

	"github.com/hyperjump/kbeval/internal/ranking"
	"github.com/hyperjump/kbeval/internal/vector"
	"gonum.org/v1/gonum/mat"
)

// RelationReport summarizes the geometry of one directed relation matrix.
type RelationReport struct {
	Relation string `json:"relation"`
	ID       int    `json:"id"`
	Steps    uint64 `json:"steps"`
	// NonDiagonal and Diagonal decompose M into its deviation from mean·I and the mean.
	NonDiagonal float64 `json:"non_diagonal"`
	Diagonal    float64 `json:"diagonal"`
	// Skewness is the same decomposition applied to M·Mᵀ; zero for a scaled rotation.
	Skewness     float64 `json:"skewness"`
	SkewDiagonal float64 `json:"skew_diagonal"`
	// Autoencoder projections, empty when the model has none.
	Code           []float32 `json:"code,omitempty"`
	DecoderNorm    float64   `json:"decoder_norm,omitempty"`
	DecodingCosine float64   `json:"decoding_cosine,omitempty"`
}

// CodeOf projects the flattened matrix of rid through the encoder and the
// bounded code activation.
func (s *EmbeddingSet) CodeOf(rid int) ([]float32, error) {
	if s.encoder == nil {
		return nil, ErrNoAutoencoder
	}
	m, err := s.RelationMatrix(rid)
	if err != nil {
		return nil, err
	}
	var z mat.VecDense
	z.MulVec(s.encoder, vector.Flatten(m.Dense()))
	bound := 4 * math.Sqrt(float64(s.dim))
	code := make([]float32, z.Len())
	for i := range code {
		code[i] = float32(codeActivation(z.AtVec(i), bound))
	}
	return code, nil
}

// codeActivation clamps x to bound, then gates max(2·hinge, x) by the hinge
// max(.5+.25x, 0) capped at 1.
func codeActivation(x, bound float64) float64 {
	x = math.Min(x, bound)
	hinge := math.Max(0.5+0.25*x, 0)
	gate := math.Min(hinge, 1)
	return gate * math.Max(2*hinge, x)
}

// InspectRelation reports deformation metrics and autoencoder projections of rid.
func (s *EmbeddingSet) InspectRelation(rid int) (*RelationReport, error) {
	m, err := s.RelationMatrix(rid)
	if err != nil {
		return nil, err
	}
	rep := &RelationReport{
		Relation: s.lex.RelationName(rid),
		ID:       rid,
		Steps:    s.RelationSteps(rid),
	}
	dm := m.Dense()
	rep.NonDiagonal, rep.Diagonal = vector.Deformation(dm)
	rep.Skewness, rep.SkewDiagonal = vector.Deformation(vector.Gram(dm))

	if s.encoder == nil {
		return rep, nil
	}
	code, err := s.CodeOf(rid)
	if err != nil {
		return nil, err
	}
	rep.Code = code

	// Decode: decoderᵀ·code, rescaled to squared norm D like the relation matrices.
	z := mat.NewVecDense(len(code), nil)
	for k, c := range code {
		z.SetVec(k, float64(c))
	}
	var dec mat.VecDense
	dec.MulVec(s.decoder.T(), z)
	if sq := mat.Dot(&dec, &dec); sq > 0 {
		rep.DecoderNorm = math.Sqrt(float64(s.dim) / sq)
		rep.DecodingCosine = mat.Dot(&dec, vector.Flatten(dm)) * rep.DecoderNorm / float64(s.dim)
	}
	return rep, nil
}

// RelationSimilarity compares m with every directed relation matrix by
// flattened inner product divided by D. Identical matrices score 1.
func (s *EmbeddingSet) RelationSimilarity(m mat.Matrix) ([]float32, error) {
	if r, c := m.Dims(); r != s.dim || c != s.dim {
		return nil, fmt.Errorf("matrix is %dx%d, want %dx%d", r, c, s.dim, s.dim)
	}
	if s.flat == nil {
		return []float32{}, nil
	}
	var sims mat.VecDense
	sims.MulVec(s.flat, vector.Flatten(m))
	sims.ScaleVec(1/float64(s.dim), &sims)
	return vector.Narrow(&sims), nil
}

// Compose returns M_r1·M_r2, the matrix of applying r2 then r1.
func (s *EmbeddingSet) Compose(r1, r2 int) (*mat.Dense, error) {
	m1, err := s.RelationMatrix(r1)
	if err != nil {
		return nil, err
	}
	m2, err := s.RelationMatrix(r2)
	if err != nil {
		return nil, err
	}
	var mm mat.Dense
	mm.Mul(m1.Dense(), m2.Dense())
	return &mm, nil
}

// CompositeRank ranks relation r among all directed relations by similarity
// to M_r1·M_r2, sharing tied positions by their mean.
func (s *EmbeddingSet) CompositeRank(r1, r2, r int) (float64, error) {
	if _, err := s.RelationMatrix(r); err != nil {
		return 0, err
	}
	mm, err := s.Compose(r1, r2)
	if err != nil {
		return 0, err
	}
	sims, err := s.RelationSimilarity(mm)
	if err != nil {
		return 0, err
	}
	return ranking.AverageRank(sims, r), nil
}
