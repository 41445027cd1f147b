package memory

import (
	"context"
	"sync"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

type stageKey struct {
	runID   string
	stage   domain.Stage
	attempt int
}

// StageStore is an in-memory implementation of storage.StageStore.
type StageStore struct {
	mu    sync.RWMutex
	keys  map[stageKey]struct{}
	byRun map[string][]*domain.StageRecord // insertion order
}

// NewStageStore creates a new in-memory stage store.
func NewStageStore() *StageStore {
	return &StageStore{
		keys:  make(map[stageKey]struct{}),
		byRun: make(map[string][]*domain.StageRecord),
	}
}

// Insert adds a stage attempt. Returns ErrDuplicateKey if (run_id, stage, attempt) exists.
func (s *StageStore) Insert(_ context.Context, rec *domain.StageRecord) error {
	if err := storage.ValidateStageRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := stageKey{rec.RunID, rec.Stage, rec.Attempt}
	if _, exists := s.keys[k]; exists {
		return storage.ErrDuplicateKey
	}
	recCopy := *rec
	recCopy.Output = append([]byte(nil), rec.Output...)
	s.keys[k] = struct{}{}
	s.byRun[rec.RunID] = append(s.byRun[rec.RunID], &recCopy)
	return nil
}

// GetByRunID retrieves all attempts of a run in the order they were recorded.
func (s *StageStore) GetByRunID(_ context.Context, runID string) ([]*domain.StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.byRun[runID]
	result := make([]*domain.StageRecord, len(recs))
	for i, r := range recs {
		recCopy := *r
		result[i] = &recCopy
	}
	return result, nil
}

var _ storage.StageStore = (*StageStore)(nil)
