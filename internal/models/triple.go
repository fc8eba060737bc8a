// Package models defines the records exchanged between evaluation, storage
// and the HTTP API.
package models

import (
	"fmt"
	"strings"
)

// Triple is a (head, relation, tail) fact using base relation names.
type Triple struct {
	Head     string `json:"h"`
	Relation string `json:"r"`
	Tail     string `json:"t"`
}

func (t Triple) String() string {
	return t.Head + "\t" + t.Relation + "\t" + t.Tail
}

// ParseTriple parses "head<TAB>relation<TAB>tail". Lines without tabs fall
// back to whitespace separation.
func ParseTriple(line string) (Triple, error) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) != 3 {
		fields = strings.Fields(line)
	}
	if len(fields) != 3 {
		return Triple{}, fmt.Errorf("want 3 fields, got %d in %q", len(fields), line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return Triple{}, fmt.Errorf("empty field in %q", line)
		}
	}
	return Triple{Head: fields[0], Relation: fields[1], Tail: fields[2]}, nil
}
