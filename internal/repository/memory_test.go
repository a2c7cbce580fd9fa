package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbm-protocol-server/internal/domain"
)

func TestMemoryStoreCreateAndList(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()
	body := testPlanBody()

	first, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)
	second, err := store.Create(ctx, "client-1", body, "Map 2")
	require.NoError(t, err)

	plans, err := store.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, first.ID, plans[0].ID)
	assert.Equal(t, second.ID, plans[1].ID)
	assert.True(t, plans[0].CreatedAt.Before(plans[1].CreatedAt),
		"creation order must be reflected in timestamps")
}

func TestMemoryStoreDuplicateLabel(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()
	body := testPlanBody()

	_, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)

	_, err = store.Create(ctx, "client-1", body, "Map 1")
	assert.ErrorIs(t, err, domain.ErrDuplicateLabel)

	// The same label is fine for another client.
	_, err = store.Create(ctx, "client-2", body, "Map 1")
	assert.NoError(t, err)
}

func TestMemoryStoreUpdateLabel(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()
	body := testPlanBody()

	plan, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)
	other, err := store.Create(ctx, "client-1", body, "Map 2")
	require.NoError(t, err)

	updated, err := store.UpdateLabel(ctx, plan.ID, "Map 5")
	require.NoError(t, err)
	assert.Equal(t, "Map 5", updated.Label)
	assert.Equal(t, plan.ID, updated.ID)

	_, err = store.UpdateLabel(ctx, other.ID, "Map 5")
	assert.ErrorIs(t, err, domain.ErrDuplicateLabel)

	_, err = store.UpdateLabel(ctx, "missing", "Map 9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()

	plan, err := store.Create(ctx, "client-1", testPlanBody(), "Map 1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, plan.ID))
	assert.ErrorIs(t, store.Delete(ctx, plan.ID), domain.ErrNotFound)

	plans, err := store.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestMemoryStoreClientIDs(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()
	body := testPlanBody()

	_, err := store.Create(ctx, "client-b", body, "Map 1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "client-a", body, "Map 1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "client-a", body, "Map 2")
	require.NoError(t, err)

	ids, err := store.ClientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"client-a", "client-b"}, ids)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryPlanStore()
	ctx := context.Background()

	plan, err := store.Create(ctx, "client-1", testPlanBody(), "Map 1")
	require.NoError(t, err)

	// Mutating a returned plan must not leak into stored state.
	plan.Label = "tampered"
	plan.Body.Phases[0].IntensityPct = 999

	plans, err := store.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Map 1", plans[0].Label)
	assert.Equal(t, 50, plans[0].Body.Phases[0].IntensityPct)
}
