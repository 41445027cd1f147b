package memory

import (
	"context"
	"sort"
	"sync"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

// TransferLegStore is an in-memory implementation of storage.TransferLegStore.
type TransferLegStore struct {
	mu    sync.RWMutex
	byRun map[string]map[int]*domain.TransferLeg
}

// NewTransferLegStore creates a new in-memory transfer leg store.
func NewTransferLegStore() *TransferLegStore {
	return &TransferLegStore{byRun: make(map[string]map[int]*domain.TransferLeg)}
}

// Insert adds a confirmed leg. Returns ErrDuplicateKey if (run_id, leg) exists.
func (s *TransferLegStore) Insert(_ context.Context, leg *domain.TransferLeg) error {
	if err := storage.ValidateTransferLeg(leg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	legs, ok := s.byRun[leg.RunID]
	if !ok {
		legs = make(map[int]*domain.TransferLeg)
		s.byRun[leg.RunID] = legs
	}
	if _, exists := legs[leg.Leg]; exists {
		return storage.ErrDuplicateKey
	}
	legCopy := *leg
	legs[leg.Leg] = &legCopy
	return nil
}

// GetByRunID retrieves all legs of a run, ordered by leg ASC.
func (s *TransferLegStore) GetByRunID(_ context.Context, runID string) ([]*domain.TransferLeg, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TransferLeg, 0, len(s.byRun[runID]))
	for _, l := range s.byRun[runID] {
		legCopy := *l
		result = append(result, &legCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Leg < result[j].Leg })
	return result, nil
}

var _ storage.TransferLegStore = (*TransferLegStore)(nil)
