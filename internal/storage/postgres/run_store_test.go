package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/storage"
)

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := &domain.Run{
		RunID:       "8f7c2a4e-0d1b-4a53-9a55-0c1f7d0f3a11",
		Cluster:     "https://api.devnet.solana.com",
		Commitment:  "finalized",
		HookProgram: "5FYsLEZ2vjDHmrs2UAVfDozy45zyPec26pjYvvgMiWhX",
		CreatedAt:   1700000000000,
	}
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)
	createTestRun(t, ctx, pool, "dup-run")

	err := store.Insert(ctx, &domain.Run{RunID: "dup-run", Cluster: "x", Commitment: "confirmed", HookProgram: "y"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
