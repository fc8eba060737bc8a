// Package expr parses and evaluates compositional vector expressions such as
// "trans(Paris, capital_of_backward) + France".
package expr

import "strings"

// Node is a parsed expression.
type Node interface {
	// String renders the node in canonical form; equal strings evaluate equally.
	String() string
	node()
}

// Leaf is an entity name.
type Leaf struct {
	Entity string
}

// Transform applies a directed relation to the value of Arg.
type Transform struct {
	Arg      Node
	Relation string
}

// Sum is the unit-normalized sum of its terms.
type Sum struct {
	Terms []Node
}

func (Leaf) node()      {}
func (Transform) node() {}
func (Sum) node()       {}

func (l Leaf) String() string { return l.Entity }

func (t Transform) String() string {
	return "trans(" + t.Arg.String() + ", " + t.Relation + ")"
}

func (s Sum) String() string {
	parts := make([]string, len(s.Terms))
	for i, term := range s.Terms {
		if _, nested := term.(Sum); nested {
			parts[i] = "(" + term.String() + ")"
		} else {
			parts[i] = term.String()
		}
	}
	return strings.Join(parts, " + ")
}
