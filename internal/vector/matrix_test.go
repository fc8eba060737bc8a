package vector

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewMatrix_shapeMismatch(t *testing.T) {
	if _, err := NewMatrix(2, 2, []float32{1, 2, 3}); err == nil {
		t.Fatal("expected shape error")
	}
}

func TestMatrix_MulVec(t *testing.T) {
	m, err := NewMatrix(3, 2, []float32{
		1, 0,
		0.9, 0.1,
		0, 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.MulVec([]float32{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 0.9, 0}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("row %d = %f, want %f", i, got[i], want[i])
		}
	}
	if _, err := m.MulVec([]float32{1, 0, 0}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestNewDense(t *testing.T) {
	d, err := NewDense(2, 2, []float32{0, -1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	var sq mat.Dense
	sq.Mul(d, d)
	if !mat.Equal(&sq, mat.NewDense(2, 2, []float64{-1, 0, 0, -1})) {
		t.Errorf("rotation squared = %v", mat.Formatted(&sq))
	}

	tests := []struct {
		name       string
		rows, cols int
		data       []float32
	}{
		{"short data", 2, 2, []float32{1, 2, 3}},
		{"long data", 1, 2, []float32{1, 2, 3}},
		{"empty shape", 0, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDense(tt.rows, tt.cols, tt.data); err == nil {
				t.Error("expected shape error")
			}
		})
	}
}

func TestDeformation(t *testing.T) {
	m, _ := NewMatrix(2, 2, []float32{2, 1, 0, 2})
	d := m.Dense()
	if n := mat.Norm(d, 2); math.Abs(n-3) > 1e-9 {
		t.Errorf("Frobenius norm = %f, want 3", n)
	}
	dfm, mean := Deformation(d)
	if mean != 2 || math.Abs(dfm-1) > 1e-9 {
		t.Errorf("Deformation = %f, %f", dfm, mean)
	}
	if !mat.Equal(Gram(d), mat.NewDense(2, 2, []float64{5, 2, 2, 4})) {
		t.Errorf("m·mᵀ = %v", mat.Formatted(Gram(d)))
	}

	rot, _ := NewDense(2, 2, []float32{0, -3, 3, 0})
	skew, diag := Deformation(Gram(rot))
	if skew != 0 || diag != 9 {
		t.Errorf("scaled rotation skewness = %f, %f; want 0, 9", skew, diag)
	}
}

func TestFlattenNarrow(t *testing.T) {
	m, _ := NewMatrix(2, 3, []float32{1, 2, 3, 4, 5, 6})
	flat := Flatten(m.Dense())
	got := Narrow(flat)
	for i, v := range m.Data() {
		if got[i] != v {
			t.Fatalf("Flatten = %v, want %v", got, m.Data())
		}
	}
	if got := Narrow(Flatten(m.Dense().T())); got[1] != 4 {
		t.Errorf("transposed flatten = %v", got)
	}
}

func TestStack(t *testing.T) {
	s, err := NewStack(2, 2, 2, []float32{1, 0, 0, 1, 0, 1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}
	if s.At(1).At(0, 1) != 1 || s.At(1).At(0, 0) != 0 {
		t.Errorf("At(1) = %v", s.At(1).Data())
	}
	flat := s.Flat()
	if flat.Rows() != 2 || flat.Cols() != 4 {
		t.Errorf("Flat shape %dx%d", flat.Rows(), flat.Cols())
	}
	if _, err := NewStack(3, 2, 2, make([]float32, 8)); err == nil {
		t.Error("expected shape error")
	}
}

func TestInnerProduct(t *testing.T) {
	if InnerProduct([]float32{1, 2}, []float32{3, 4}) != 11 {
		t.Error("inner product")
	}
	if InnerProduct([]float32{1}, []float32{1, 2}) != 0 {
		t.Error("mismatched lengths should return 0")
	}
	dst := []float32{1, 1}
	Add(dst, []float32{2, -1})
	if dst[0] != 3 || dst[1] != 0 {
		t.Errorf("Add = %v", dst)
	}
}
