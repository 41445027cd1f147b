package clickhouse

import (
	"context"
	"fmt"
	"time"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

// TransferLegStore implements storage.TransferLegStore using ClickHouse.
type TransferLegStore struct {
	conn *Conn
}

// NewTransferLegStore creates a new TransferLegStore.
func NewTransferLegStore(conn *Conn) *TransferLegStore {
	return &TransferLegStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferLegStore = (*TransferLegStore)(nil)

// Insert adds a confirmed leg. Returns ErrDuplicateKey if (run_id, leg) exists.
// MergeTree does not enforce keys, so existence is checked first.
func (s *TransferLegStore) Insert(ctx context.Context, leg *domain.TransferLeg) error {
	if err := storage.ValidateTransferLeg(leg); err != nil {
		return err
	}

	exists, err := s.exists(ctx, leg.RunID, leg.Leg)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_legs (
			run_id, leg, signature, mint, source, destination, owner,
			amount, companion_supply, confirmed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		leg.RunID, uint32(leg.Leg), leg.Signature, leg.Mint, leg.Source, leg.Destination, leg.Owner,
		leg.Amount, leg.CompanionSupply, uint64(leg.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	start := time.Now()
	err = batch.Send()
	observe("insert_leg", start, err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all legs of a run, ordered by leg ASC.
func (s *TransferLegStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TransferLeg, error) {
	query := `
		SELECT run_id, leg, signature, mint, source, destination, owner,
			amount, companion_supply, confirmed_at
		FROM transfer_legs
		WHERE run_id = ?
		ORDER BY leg ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		observe("get_legs", start, err)
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	legs, err := scanTransferLegs(rows)
	observe("get_legs", start, err)
	return legs, err
}

func (s *TransferLegStore) exists(ctx context.Context, runID string, leg int) (bool, error) {
	query := `
		SELECT count(*) FROM transfer_legs
		WHERE run_id = ? AND leg = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, uint32(leg)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTransferLegs(rows chRows) ([]*domain.TransferLeg, error) {
	var legs []*domain.TransferLeg

	for rows.Next() {
		var l domain.TransferLeg
		var leg uint32
		var confirmedAt uint64

		err := rows.Scan(
			&l.RunID, &leg, &l.Signature, &l.Mint, &l.Source, &l.Destination, &l.Owner,
			&l.Amount, &l.CompanionSupply, &confirmedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer leg row: %w", err)
		}
		l.Leg = int(leg)
		l.ConfirmedAt = int64(confirmedAt)
		legs = append(legs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer leg rows: %w", err)
	}
	return legs, nil
}
