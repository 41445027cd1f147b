package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

// StageStore implements storage.StageStore using PostgreSQL.
type StageStore struct {
	pool *Pool
}

// NewStageStore creates a new StageStore.
func NewStageStore(pool *Pool) *StageStore {
	return &StageStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StageStore = (*StageStore)(nil)

// Insert adds a stage attempt. Returns ErrDuplicateKey if (run_id, stage, attempt) exists.
func (s *StageStore) Insert(ctx context.Context, rec *domain.StageRecord) error {
	if err := storage.ValidateStageRecord(rec); err != nil {
		return err
	}
	query := `
		INSERT INTO hooklab_stage_records (
			run_id, stage, attempt, status, output, failure_kind, error, mint, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var output []byte
	if len(rec.Output) > 0 {
		output = rec.Output
	}
	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		rec.RunID,
		string(rec.Stage),
		rec.Attempt,
		string(rec.Status),
		output,
		rec.FailureKind,
		rec.Error,
		rec.Mint,
		rec.RecordedAt,
	)
	observe("insert_stage", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert stage record: %w", err)
	}
	return nil
}

// GetByRunID retrieves all attempts of a run, ordered by recorded_at ASC.
func (s *StageStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StageRecord, error) {
	query := `
		SELECT run_id, stage, attempt, status, output, failure_kind, error, mint, recorded_at
		FROM hooklab_stage_records
		WHERE run_id = $1
		ORDER BY recorded_at ASC, attempt ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		observe("get_stages", start, err)
		return nil, fmt.Errorf("query stage records: %w", err)
	}
	defer rows.Close()

	var result []*domain.StageRecord
	for rows.Next() {
		rec, err := scanStageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		result = append(result, rec)
	}
	err = rows.Err()
	observe("get_stages", start, err)
	if err != nil {
		return nil, fmt.Errorf("iterate stage records: %w", err)
	}
	return result, nil
}

func scanStageRecord(row pgx.Row) (*domain.StageRecord, error) {
	var (
		rec           domain.StageRecord
		stage, status string
		output        []byte
	)
	err := row.Scan(
		&rec.RunID,
		&stage,
		&rec.Attempt,
		&status,
		&output,
		&rec.FailureKind,
		&rec.Error,
		&rec.Mint,
		&rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Stage = domain.Stage(stage)
	rec.Status = domain.StageStatus(status)
	if output != nil {
		rec.Output = json.RawMessage(output)
	}
	return &rec, nil
}
