// Package lexicon maps entity and relation names to dense integer ids.
package lexicon

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kbeval/pkg/utils"
)

// Direction selects a directed variant of a base relation.
type Direction int

const (
	// Forward reads head -> tail.
	Forward Direction = iota
	// Backward reads tail -> head.
	Backward
)

const (
	forwardSuffix  = "_forward"
	backwardSuffix = "_backward"
	// Suffixes written by the training tools.
	forwardMark  = ">"
	backwardMark = "<"
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Suffix returns the directed relation name suffix for d.
func (d Direction) Suffix() string {
	if d == Backward {
		return backwardSuffix
	}
	return forwardSuffix
}

// Lexicon is the immutable name <-> id mapping shared by every array of a model.
// Entity ids are [0, E). Directed relation ids are [0, 2R): id i < R is the
// forward variant of base relation i, id R+i its backward variant.
type Lexicon struct {
	entities  []string
	entityIDs map[string]int
	bases     []string
	baseIDs   map[string]int
	relations []string
}

// LoadEntities reads an entity vocabulary (name<TAB>frequency per line); line order is the id.
func LoadEntities(path string) ([]string, error) {
	return loadNames(path, "entity")
}

// LoadRelations reads a relation vocabulary and returns its base names in id order.
func LoadRelations(path string) ([]string, error) {
	return loadNames(path, "relation")
}

// loadNames keeps ids equal to line numbers, so only trailing blank lines
// are allowed.
func loadNames(path, kind string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	blank := -1
	for line, err := range utils.Lines(path) {
		if err != nil {
			return nil, fmt.Errorf("load %s vocabulary: %w", kind, err)
		}
		name := utils.FirstField(line)
		if name == "" {
			if blank < 0 {
				blank = len(names)
			}
			continue
		}
		if blank >= 0 {
			return nil, &LexiconError{Kind: kind, Index: blank, Reason: "blank line inside the vocabulary"}
		}
		if seen[name] {
			return nil, &LexiconError{Kind: kind, Name: name, Index: len(names)}
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// Load reads both vocabularies and builds the lexicon.
func Load(entityPath, relationPath string) (*Lexicon, error) {
	entities, err := LoadEntities(entityPath)
	if err != nil {
		return nil, err
	}
	relations, err := LoadRelations(relationPath)
	if err != nil {
		return nil, err
	}
	return New(entities, relations)
}

// New builds a lexicon from entity names and base relation names.
func New(entities, baseRelations []string) (*Lexicon, error) {
	l := &Lexicon{
		entities:  append([]string(nil), entities...),
		entityIDs: make(map[string]int, len(entities)),
		bases:     append([]string(nil), baseRelations...),
		baseIDs:   make(map[string]int, len(baseRelations)),
		relations: make([]string, 0, 2*len(baseRelations)),
	}
	for i, name := range l.entities {
		if _, dup := l.entityIDs[name]; dup {
			return nil, &LexiconError{Kind: "entity", Name: name, Index: i}
		}
		l.entityIDs[name] = i
	}
	for i, name := range l.bases {
		if _, dup := l.baseIDs[name]; dup {
			return nil, &LexiconError{Kind: "relation", Name: name, Index: i}
		}
		l.baseIDs[name] = i
	}
	for i, name := range l.bases {
		base, _, ok := SplitDirected(name)
		if _, clash := l.baseIDs[base]; ok && clash {
			return nil, &LexiconError{
				Kind:   "relation",
				Name:   name,
				Index:  i,
				Reason: fmt.Sprintf("reads as a directed name of relation %q", base),
			}
		}
	}
	for _, name := range l.bases {
		l.relations = append(l.relations, name+forwardSuffix)
	}
	for _, name := range l.bases {
		l.relations = append(l.relations, name+backwardSuffix)
	}
	return l, nil
}

// NumEntities returns E.
func (l *Lexicon) NumEntities() int { return len(l.entities) }

// NumBaseRelations returns R.
func (l *Lexicon) NumBaseRelations() int { return len(l.bases) }

// NumRelations returns the number of directed relations, 2R.
func (l *Lexicon) NumRelations() int { return len(l.relations) }

// Entities returns the entity names in id order. The slice must not be modified.
func (l *Lexicon) Entities() []string { return l.entities }

// Relations returns the directed relation names in id order. The slice must not be modified.
func (l *Lexicon) Relations() []string { return l.relations }

// HasEntity reports whether name is in the vocabulary.
func (l *Lexicon) HasEntity(name string) bool {
	_, ok := l.entityIDs[name]
	return ok
}

// EntityID returns the id of an entity name.
func (l *Lexicon) EntityID(name string) (int, error) {
	id, ok := l.entityIDs[name]
	if !ok {
		return 0, &LookupError{Kind: "entity", Name: name}
	}
	return id, nil
}

// EntityName returns the name of an entity id, or "" when out of range.
func (l *Lexicon) EntityName(id int) string {
	if id < 0 || id >= len(l.entities) {
		return ""
	}
	return l.entities[id]
}

// DirectedID returns the directed relation id of a base relation.
func (l *Lexicon) DirectedID(base string, dir Direction) (int, error) {
	i, ok := l.baseIDs[base]
	if !ok {
		return 0, &LookupError{Kind: "relation", Name: base}
	}
	if dir == Backward {
		return i + len(l.bases), nil
	}
	return i, nil
}

// RelationID resolves a directed relation name. Both "name_forward"/"name_backward"
// and the "name>"/"name<" spellings are accepted.
func (l *Lexicon) RelationID(name string) (int, error) {
	base, dir, ok := SplitDirected(name)
	if !ok {
		return 0, &LookupError{Kind: "relation", Name: name}
	}
	id, err := l.DirectedID(base, dir)
	if err != nil {
		return 0, &LookupError{Kind: "relation", Name: name}
	}
	return id, nil
}

// ResolveRelation accepts directed names and, as a shorthand, bare base
// names for the forward direction.
func (l *Lexicon) ResolveRelation(name string) (int, error) {
	rid, err := l.RelationID(name)
	if err == nil {
		return rid, nil
	}
	if fwd, ferr := l.DirectedID(name, Forward); ferr == nil {
		return fwd, nil
	}
	return 0, err
}

// ParseDirection maps "forward"/"backward" (or ">"/"<") to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "forward", forwardMark:
		return Forward, nil
	case "backward", backwardMark:
		return Backward, nil
	}
	return Forward, fmt.Errorf("invalid direction %q", s)
}

// RelationName returns the directed name of a relation id, or "" when out of range.
func (l *Lexicon) RelationName(id int) string {
	if id < 0 || id >= len(l.relations) {
		return ""
	}
	return l.relations[id]
}

// SplitDirected splits a directed relation name into its base name and direction.
func SplitDirected(name string) (string, Direction, bool) {
	switch {
	case strings.HasSuffix(name, forwardSuffix):
		return strings.TrimSuffix(name, forwardSuffix), Forward, true
	case strings.HasSuffix(name, backwardSuffix):
		return strings.TrimSuffix(name, backwardSuffix), Backward, true
	case strings.HasSuffix(name, forwardMark):
		return strings.TrimSuffix(name, forwardMark), Forward, true
	case strings.HasSuffix(name, backwardMark):
		return strings.TrimSuffix(name, backwardMark), Backward, true
	}
	return "", Forward, false
}
