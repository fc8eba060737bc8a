package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kbeval/internal/models"
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// ProcessCalc trims and validates a calc request and applies the default k.
func ProcessCalc(req *models.CalcRequest, defaultK int) error {
	req.Expr = strings.TrimSpace(req.Expr)
	return invalid(req.Validate(defaultK))
}

// ProcessScore trims and validates a score request and applies defaults.
func ProcessScore(req *models.ScoreRequest, defaultK int) error {
	req.Head = strings.TrimSpace(req.Head)
	req.Relation = strings.TrimSpace(req.Relation)
	return invalid(req.Validate(defaultK))
}

// ProcessSim trims and validates a sim request.
func ProcessSim(req *models.SimRequest) error {
	req.Left = strings.TrimSpace(req.Left)
	req.Right = strings.TrimSpace(req.Right)
	return invalid(req.Validate())
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}
