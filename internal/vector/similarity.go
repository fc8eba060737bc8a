// Package vector provides dense float32 matrices and similarity kernels.
package vector

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
// Mismatched or empty inputs return 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Add accumulates src into dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}
