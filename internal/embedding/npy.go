package embedding

import (
	"errors"
	"fmt"
	"os"

	"github.com/sbinet/npyio/npy"
)

// array is a C-order numeric array read from a .npy file.
type array[T float32 | uint64] struct {
	shape []int
	data  []T
}

func (a array[T]) size() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	return n
}

// hasShape reports whether a matches want; -1 in want matches any extent.
func (a array[T]) hasShape(want ...int) bool {
	if len(a.shape) != len(want) {
		return false
	}
	for i, w := range want {
		if w >= 0 && a.shape[i] != w {
			return false
		}
	}
	return true
}

func openNpy(path string) (*os.File, *npy.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := npy.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if r.Header.Descr.Fortran {
		f.Close()
		return nil, nil, errors.New("fortran-ordered arrays are not supported")
	}
	return f, r, nil
}

// readFloats reads a floating point or integer array as float32.
func readFloats(path string) (array[float32], error) {
	var out array[float32]
	f, r, err := openNpy(path)
	if err != nil {
		return out, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	out.shape = append([]int(nil), r.Header.Descr.Shape...)
	switch dt := r.Header.Descr.Type; dt {
	case "<f4":
		err = r.Read(&out.data)
	case "<f8":
		var raw []float64
		err = r.Read(&raw)
		out.data = convert[float32](raw)
	case "<i4":
		var raw []int32
		err = r.Read(&raw)
		out.data = convert[float32](raw)
	case "<i8":
		var raw []int64
		err = r.Read(&raw)
		out.data = convert[float32](raw)
	default:
		err = fmt.Errorf("unsupported dtype %q for float array", dt)
	}
	if err != nil {
		return out, &LoadError{Path: path, Err: err}
	}
	return out, nil
}

// readCounts reads a non-negative integer array such as training step counts.
func readCounts(path string) (array[uint64], error) {
	var out array[uint64]
	f, r, err := openNpy(path)
	if err != nil {
		return out, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	out.shape = append([]int(nil), r.Header.Descr.Shape...)
	switch dt := r.Header.Descr.Type; dt {
	case "<u8":
		err = r.Read(&out.data)
	case "<u4":
		var raw []uint32
		err = r.Read(&raw)
		out.data = convert[uint64](raw)
	case "<i8":
		var raw []int64
		err = r.Read(&raw)
		out.data, err = nonNegative(raw, err)
	case "<i4":
		var raw []int32
		err = r.Read(&raw)
		out.data, err = nonNegative(raw, err)
	default:
		err = fmt.Errorf("unsupported dtype %q for step counts", dt)
	}
	if err != nil {
		return out, &LoadError{Path: path, Err: err}
	}
	return out, nil
}

func convert[D float32 | uint64, S float64 | float32 | int32 | int64 | uint32](src []S) []D {
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = D(v)
	}
	return out
}

func nonNegative[S int32 | int64](src []S, err error) ([]uint64, error) {
	if err != nil {
		return nil, err
	}
	for i, v := range src {
		if v < 0 {
			return nil, fmt.Errorf("negative step count %d at index %d", v, i)
		}
	}
	return convert[uint64](src), nil
}
