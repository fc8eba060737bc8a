package eval

import (
	"fmt"
)

// EvaluationError reports an evaluation that produced no usable result.
type EvaluationError struct {
	Split string
	Err   error
}

func (e *EvaluationError) Error() string {
	if e.Split == "" {
		return fmt.Sprintf("evaluation: %v", e.Err)
	}
	return fmt.Sprintf("evaluation of %s: %v", e.Split, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
