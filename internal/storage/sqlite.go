package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kbeval/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model_dir TEXT NOT NULL,
		split TEXT NOT NULL,
		adjust INTEGER NOT NULL DEFAULT 0,
		mr REAL NOT NULL,
		mrr REAL NOT NULL,
		hits10 REAL NOT NULL,
		hits3 REAL NOT NULL,
		hits1 REAL NOT NULL,
		rank_count INTEGER NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_model_dir ON runs(model_dir, created_at);

	CREATE TABLE IF NOT EXISTS run_ranks (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		head TEXT NOT NULL,
		relation TEXT NOT NULL,
		tail TEXT NOT NULL,
		direction TEXT NOT NULL,
		rank INTEGER NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

const runColumns = `id, model_dir, split, adjust, mr, mrr, hits10, hits3, hits1, rank_count, skipped, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	m := &run.Metrics
	err := row.Scan(&run.ID, &run.ModelDir, &run.Split, &run.Adjust,
		&m.MR, &m.MRR, &m.Hits10, &m.Hits3, &m.Hits1, &m.Count, &run.Skipped, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateRun inserts a run and its ranks in a transaction.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *models.Run, ranks []models.RunRank) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m := run.Metrics
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ModelDir, run.Split, run.Adjust,
		m.MR, m.MRR, m.Hits10, m.Hits3, m.Hits1, m.Count, run.Skipped, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_ranks (run_id, position, head, relation, tail, direction, rank)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range ranks {
		r := &ranks[i]
		r.RunID = run.ID
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Position, r.Triple.Head, r.Triple.Relation, r.Triple.Tail, r.Direction, r.Rank); err != nil {
			return fmt.Errorf("failed to insert rank %d: %w", r.Position, err)
		}
	}
	return tx.Commit()
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// ListRuns returns runs with offset and limit, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, modelDir string, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE ? = '' OR model_dir = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		modelDir, modelDir, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunRanks returns the ranks of a run in evaluation order.
func (s *SQLiteStorage) GetRunRanks(ctx context.Context, id string) ([]models.RunRank, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, position, head, relation, tail, direction, rank
		 FROM run_ranks WHERE run_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranks []models.RunRank
	for rows.Next() {
		var r models.RunRank
		if err := rows.Scan(&r.RunID, &r.Position, &r.Triple.Head, &r.Triple.Relation, &r.Triple.Tail, &r.Direction, &r.Rank); err != nil {
			return nil, err
		}
		ranks = append(ranks, r)
	}
	return ranks, rows.Err()
}

// DeleteRun removes a run and its ranks.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
