package memory

import (
	"context"
	"errors"
	"testing"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

func TestRunStore_InsertAndGetByID(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.Run{
		RunID:       "run-1",
		Cluster:     "memory://",
		Commitment:  "confirmed",
		HookProgram: "5FYsLEZ2vjDHmrs2UAVfDozy45zyPec26pjYvvgMiWhX",
		CreatedAt:   1704067200000,
	}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if *got != *run {
		t.Errorf("run mismatch: got %+v, want %+v", got, run)
	}

	got.Cluster = "mutated"
	again, _ := store.GetByID(ctx, "run-1")
	if again.Cluster != "memory://" {
		t.Errorf("store returned shared state")
	}
}

func TestRunStore_Errors(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Run{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Run{RunID: "a"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, &domain.Run{RunID: "a"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
