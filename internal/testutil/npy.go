// Package testutil builds on-disk model and dataset fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"testing"
)

// WriteNpy writes a C-order NumPy v1.0 array file. data must be a []float32,
// []float64, []int64 or []uint64 whose length matches shape.
func WriteNpy(t testing.TB, path string, shape []int, data any) {
	t.Helper()
	var descr string
	n := 0
	switch d := data.(type) {
	case []float32:
		descr, n = "<f4", len(d)
	case []float64:
		descr, n = "<f8", len(d)
	case []int64:
		descr, n = "<i8", len(d)
	case []uint64:
		descr, n = "<u8", len(d)
	default:
		t.Fatalf("WriteNpy: unsupported type %T", data)
	}
	want := 1
	for _, s := range shape {
		want *= s
	}
	if want != n {
		t.Fatalf("WriteNpy %s: %d elements for shape %v", path, n, shape)
	}

	if err := os.WriteFile(path, encodeNpy(descr, shape, data), 0600); err != nil {
		t.Fatal(err)
	}
}

func encodeNpy(descr string, shape []int, data any) []byte {
	dims := make([]string, len(shape))
	for i, s := range shape {
		dims[i] = fmt.Sprint(s)
	}
	tuple := "(" + strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	tuple += ")"
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, tuple)
	// magic(6) + version(2) + header length(2) + header, padded to 64 bytes and ending in '\n'.
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	_ = binary.Write(&buf, binary.LittleEndian, data)
	return buf.Bytes()
}
