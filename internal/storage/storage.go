// Package storage persists evaluation runs and their per-instance ranks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kbeval/internal/models"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Storage defines evaluation run persistence operations.
type Storage interface {
	// CreateRun stores run and its ranks atomically, assigning ID and
	// CreatedAt when unset.
	CreateRun(ctx context.Context, run *models.Run, ranks []models.RunRank) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	// ListRuns returns runs newest first; an empty modelDir lists every model.
	ListRuns(ctx context.Context, modelDir string, offset, limit int) ([]*models.Run, error)
	GetRunRanks(ctx context.Context, id string) ([]models.RunRank, error)
	DeleteRun(ctx context.Context, id string) error

	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
