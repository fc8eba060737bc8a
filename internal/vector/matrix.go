package vector

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major float32 matrix. Row views share the backing array.
type Matrix struct {
	rows int
	cols int
	data []float32
}

// NewMatrix wraps data (len rows*cols, row-major) without copying.
func NewMatrix(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid shape %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("data length %d does not match shape %dx%d", len(data), rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Data returns the row-major backing slice.
func (m *Matrix) Data() []float32 { return m.data }

// Row returns a view of row i.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.cols+j]
}

// MulVec returns m·x, one inner product per row. It is the brute-force
// similarity of x against every row.
func (m *Matrix) MulVec(x []float32) ([]float32, error) {
	if len(x) != m.cols {
		return nil, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(x), m.cols)
	}
	out := make([]float32, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		var dot float64
		for j, v := range row {
			dot += float64(v) * float64(x[j])
		}
		out[i] = float32(dot)
	}
	return out, nil
}

// Stack is a contiguous sequence of equally shaped matrices, such as one
// transformation per directed relation.
type Stack struct {
	n    int
	rows int
	cols int
	data []float32
}

// NewStack wraps data (len n*rows*cols) without copying.
func NewStack(n, rows, cols int, data []float32) (*Stack, error) {
	if len(data) != n*rows*cols {
		return nil, fmt.Errorf("data length %d does not match shape %dx%dx%d", len(data), n, rows, cols)
	}
	return &Stack{n: n, rows: rows, cols: cols, data: data}, nil
}

// Len returns the number of matrices.
func (s *Stack) Len() int { return s.n }

// At returns a view of matrix i.
func (s *Stack) At(i int) *Matrix {
	size := s.rows * s.cols
	return &Matrix{rows: s.rows, cols: s.cols, data: s.data[i*size : (i+1)*size]}
}

// Flat views the stack as an n x (rows*cols) matrix, one flattened matrix per row.
func (s *Stack) Flat() *Matrix {
	return &Matrix{rows: s.n, cols: s.rows * s.cols, data: s.data}
}

// Dense copies m into a float64 gonum matrix.
func (m *Matrix) Dense() *mat.Dense {
	return mat.NewDense(m.rows, m.cols, widen(m.data))
}

// NewDense copies row-major float32 data into a rows x cols gonum matrix.
func NewDense(rows, cols int, data []float32) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid shape %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("data length %d does not match shape %dx%d", len(data), rows, cols)
	}
	return mat.NewDense(rows, cols, widen(data)), nil
}

// Flatten returns the row-major entries of a as one vector.
func Flatten(a mat.Matrix) *mat.VecDense {
	r, c := a.Dims()
	out := mat.NewVecDense(r*c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.SetVec(i*c+j, a.At(i, j))
		}
	}
	return out
}

// Gram returns a·aᵀ.
func Gram(a mat.Matrix) *mat.Dense {
	var g mat.Dense
	g.Mul(a, a.T())
	return &g
}

// Deformation returns the Frobenius norm of a square matrix minus its
// mean-diagonal identity part, and that mean diagonal value. A pure scaled
// rotation has deformation 0 under a·aᵀ.
func Deformation(a mat.Matrix) (float64, float64) {
	n, _ := a.Dims()
	mean := mat.Trace(a) / float64(n)
	dev := mat.DenseCopyOf(a)
	for i := 0; i < n; i++ {
		dev.Set(i, i, dev.At(i, i)-mean)
	}
	return mat.Norm(dev, 2), mean
}

// Narrow converts a gonum vector back to float32.
func Narrow(v mat.Vector) []float32 {
	out := make([]float32, v.Len())
	for i := range out {
		out[i] = float32(v.AtVec(i))
	}
	return out
}

func widen(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}
