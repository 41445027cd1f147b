package storage

import (
	"context"

	"transfer-hook-lab/internal/domain"
)

// RunStore provides access to hooklab_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.Run) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)
}

// StageStore provides access to hooklab_stage_records storage.
type StageStore interface {
	// Insert adds a stage attempt. Returns ErrDuplicateKey if
	// (run_id, stage, attempt) exists.
	Insert(ctx context.Context, rec *domain.StageRecord) error

	// GetByRunID retrieves all attempts of a run, ordered by recorded_at ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.StageRecord, error)
}

// TransferLegStore provides access to transfer_legs storage.
type TransferLegStore interface {
	// Insert adds a confirmed leg. Returns ErrDuplicateKey if (run_id, leg) exists.
	Insert(ctx context.Context, leg *domain.TransferLeg) error

	// GetByRunID retrieves all legs of a run, ordered by leg ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TransferLeg, error)
}
