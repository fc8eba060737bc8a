package lexicon

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every LookupError.
var ErrNotFound = errors.New("not found")

// LookupError reports an entity or relation name absent from the lexicon.
type LookupError struct {
	Kind string // "entity" or "relation"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Kind, e.Name)
}

// Is makes errors.Is(err, ErrNotFound) true for lookup failures.
func (e *LookupError) Is(target error) bool {
	return target == ErrNotFound
}

// LexiconError reports a malformed vocabulary, such as a duplicate name.
type LexiconError struct {
	Kind  string
	Name  string
	Index int // position of the offending entry
	// Reason describes the problem; empty means Name occurs twice.
	Reason string
}

func (e *LexiconError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %q at entry %d: %s", e.Kind, e.Name, e.Index, e.Reason)
	}
	return fmt.Sprintf("duplicate %s %q at entry %d", e.Kind, e.Name, e.Index)
}
