package memory

import (
	"context"
	"errors"
	"testing"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

func TestTransferLegStore_OrderedByLeg(t *testing.T) {
	store := NewTransferLegStore()
	ctx := context.Background()

	for _, leg := range []int{1, 0, 2} {
		err := store.Insert(ctx, &domain.TransferLeg{
			RunID:           "run-1",
			Leg:             leg,
			Signature:       "sig",
			Amount:          1,
			CompanionSupply: uint64(leg + 1),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(got))
	}
	for i, l := range got {
		if l.Leg != i || l.CompanionSupply != uint64(i+1) {
			t.Errorf("leg %d out of order: %+v", i, l)
		}
	}
}

func TestTransferLegStore_Errors(t *testing.T) {
	store := NewTransferLegStore()
	ctx := context.Background()

	leg := &domain.TransferLeg{RunID: "run-1", Leg: 0, Signature: "sig"}
	if err := store.Insert(ctx, leg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, leg); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.TransferLeg{RunID: "run-1", Leg: 1}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
