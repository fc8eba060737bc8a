package models

import (
	"errors"
	"fmt"
)

// MaxTopK bounds the number of neighbours an API request may ask for.
const MaxTopK = 100

// CalcRequest asks for the nearest entities of an expression.
type CalcRequest struct {
	Expr string `json:"expr"`
	K    int    `json:"k,omitempty"`
}

// Validate checks the request and applies the default k.
func (q *CalcRequest) Validate(defaultK int) error {
	if q.Expr == "" {
		return errors.New("expr cannot be empty")
	}
	q.K = clampK(q.K, defaultK)
	return nil
}

// ScoreRequest asks for the best completions of (head, relation, ?), or of
// (?, relation, head) when Direction is "backward".
type ScoreRequest struct {
	Head      string `json:"head"`
	Relation  string `json:"relation"`
	Direction string `json:"direction,omitempty"`
	K         int    `json:"k,omitempty"`
}

// Validate checks the request, defaulting Direction to "forward".
func (q *ScoreRequest) Validate(defaultK int) error {
	if q.Head == "" || q.Relation == "" {
		return errors.New("head and relation are required")
	}
	switch q.Direction {
	case "":
		q.Direction = "forward"
	case "forward", "backward":
	default:
		return fmt.Errorf("direction must be forward or backward, got %q", q.Direction)
	}
	q.K = clampK(q.K, defaultK)
	return nil
}

// SimRequest compares two expressions.
type SimRequest struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Validate checks that both sides are present.
func (q *SimRequest) Validate() error {
	if q.Left == "" || q.Right == "" {
		return errors.New("left and right are required")
	}
	return nil
}

func clampK(k, def int) int {
	if k <= 0 {
		k = def
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	return k
}
