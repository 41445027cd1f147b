package orchestrator

import (
	"context"
	"fmt"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

// Status is the recorded progress of a run.
type Status struct {
	Run    *domain.Run
	Stages []*domain.StageRecord
	Legs   []*domain.TransferLeg
	// Next is the first stage without a completed attempt, empty when the
	// run finished.
	Next domain.Stage
}

// LoadStatus reads the checkpoints of runID.
func LoadStatus(ctx context.Context, runs storage.RunStore, stages storage.StageStore, legs storage.TransferLegStore, runID string) (*Status, error) {
	r, err := runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	recs, err := stages.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stages of %s: %w", runID, err)
	}
	ls, err := legs.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load legs of %s: %w", runID, err)
	}

	done := make(map[domain.Stage]bool)
	for _, rec := range recs {
		if rec.Status == domain.StageCompleted {
			done[rec.Stage] = true
		}
	}
	st := &Status{Run: r, Stages: recs, Legs: ls}
	for _, s := range domain.Stages {
		if !done[s] {
			st.Next = s
			break
		}
	}
	return st, nil
}
