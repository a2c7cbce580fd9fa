package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbm-protocol-server/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLitePlanStore {
	t.Helper()
	store, err := NewSQLitePlanStore(filepath.Join(t.TempDir(), "plans.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreCreateAndList(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	body := testPlanBody()

	first, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Map 1", first.Label)
	assert.Equal(t, *body, first.Body)

	_, err = store.Create(ctx, "client-1", body, "Map 2")
	require.NoError(t, err)

	plans, err := store.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Map 1", plans[0].Label)
	assert.Equal(t, "Map 2", plans[1].Label)
	assert.Equal(t, *body, plans[0].Body, "body must round-trip through storage")

	empty, err := store.ListByClient(ctx, "client-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStoreDuplicateLabel(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	body := testPlanBody()

	_, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)

	_, err = store.Create(ctx, "client-1", body, "Map 1")
	assert.ErrorIs(t, err, domain.ErrDuplicateLabel)

	_, err = store.Create(ctx, "client-2", body, "Map 1")
	assert.NoError(t, err, "uniqueness is scoped per client")
}

func TestSQLiteStoreUpdateLabel(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	body := testPlanBody()

	plan, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)
	other, err := store.Create(ctx, "client-1", body, "Map 2")
	require.NoError(t, err)

	updated, err := store.UpdateLabel(ctx, plan.ID, "Map 7")
	require.NoError(t, err)
	assert.Equal(t, "Map 7", updated.Label)
	assert.Equal(t, plan.ID, updated.ID)
	assert.Equal(t, *body, updated.Body)

	_, err = store.UpdateLabel(ctx, other.ID, "Map 7")
	assert.ErrorIs(t, err, domain.ErrDuplicateLabel)

	_, err = store.UpdateLabel(ctx, "missing", "Map 9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	plan, err := store.Create(ctx, "client-1", testPlanBody(), "Map 1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, plan.ID))
	assert.ErrorIs(t, store.Delete(ctx, plan.ID), domain.ErrNotFound)
}

func TestSQLiteStoreClientIDs(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	body := testPlanBody()

	ids, err := store.ClientIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = store.Create(ctx, "client-b", body, "Map 1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "client-a", body, "Map 1")
	require.NoError(t, err)

	ids, err = store.ClientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"client-a", "client-b"}, ids)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plans.db")
	ctx := context.Background()

	store, err := NewSQLitePlanStore(dbPath, testLogger())
	require.NoError(t, err)
	plan, err := store.Create(ctx, "client-1", testPlanBody(), "Map 1")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLitePlanStore(dbPath, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	plans, err := reopened.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.ID, plans[0].ID)
	assert.Equal(t, "Map 1", plans[0].Label)
}
