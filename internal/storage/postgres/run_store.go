package postgres

import (
	"context"
	"fmt"
	"time"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.Run) error {
	if err := storage.ValidateRun(r); err != nil {
		return err
	}
	query := `
		INSERT INTO hooklab_runs (
			run_id, cluster, commitment, hook_program, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query, r.RunID, r.Cluster, r.Commitment, r.HookProgram, r.CreatedAt)
	observe("insert_run", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	query := `
		SELECT run_id, cluster, commitment, hook_program, created_at
		FROM hooklab_runs
		WHERE run_id = $1
	`

	var r domain.Run
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, runID).Scan(&r.RunID, &r.Cluster, &r.Commitment, &r.HookProgram, &r.CreatedAt)
	observe("get_run", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return &r, nil
}
