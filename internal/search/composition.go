package search

import (
	"fmt"
	"iter"
	"strings"

	"github.com/hyperjump/kbeval/pkg/utils"
)

// Composition is a compositional constraint: applying Second then First
// should resemble Target. Extra tab-separated columns are ignored.
type Composition struct {
	First  string
	Second string
	Target string
}

// ParseComposition parses a "r1<TAB>r2<TAB>r[<TAB>...]" line.
func ParseComposition(line string) (Composition, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return Composition{}, fmt.Errorf("composition needs 3 tab-separated relations, got %d fields", len(fields))
	}
	return Composition{First: fields[0], Second: fields[1], Target: fields[2]}, nil
}

// ReadCompositions lazily parses a composition file, skipping blank lines.
func ReadCompositions(path string) iter.Seq2[Composition, error] {
	return func(yield func(Composition, error) bool) {
		n := 0
		for line, err := range utils.Lines(path) {
			n++
			if err != nil {
				yield(Composition{}, err)
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			c, err := ParseComposition(line)
			if err != nil {
				yield(Composition{}, fmt.Errorf("%s:%d: %w", path, n, err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}
