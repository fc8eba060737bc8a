package embedding

import (
	"errors"
	"fmt"
)

// ErrDegenerate is returned when a vector or matrix that must be normalized has
// zero (or non-finite) norm.
var ErrDegenerate = errors.New("degenerate zero-norm vector")

// ErrNoAutoencoder is returned by code diagnostics when the model directory
// has no encoder/decoder pair.
var ErrNoAutoencoder = errors.New("model has no autoencoder")

// LoadError reports a missing, malformed or mis-shaped model file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func shapeError(path string, got []int, want ...int) error {
	return &LoadError{Path: path, Err: fmt.Errorf("shape %v, want %v", got, want)}
}
