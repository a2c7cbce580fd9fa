package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbm-protocol-server/internal/domain"
)

// faultyStore wraps the in-memory store and fails every call while tripped.
type faultyStore struct {
	*MemoryPlanStore
	failing bool
}

var errBackendDown = errors.New("backend down")

func (f *faultyStore) ListByClient(ctx context.Context, clientID string) ([]*domain.ProtocolPlan, error) {
	if f.failing {
		return nil, fmt.Errorf("listing plans: %w", errBackendDown)
	}
	return f.MemoryPlanStore.ListByClient(ctx, clientID)
}

func (f *faultyStore) Create(ctx context.Context, clientID string, body *domain.PlanBody, label string) (*domain.ProtocolPlan, error) {
	if f.failing {
		return nil, fmt.Errorf("creating plan: %w", errBackendDown)
	}
	return f.MemoryPlanStore.Create(ctx, clientID, body, label)
}

func TestBreakerPassesThroughWhenHealthy(t *testing.T) {
	inner := &faultyStore{MemoryPlanStore: NewMemoryPlanStore()}
	store := NewBreakerPlanStore(inner, testLogger())
	ctx := context.Background()

	plan, err := store.Create(ctx, "client-1", testPlanBody(), "Map 1")
	require.NoError(t, err)
	assert.Equal(t, "Map 1", plan.Label)

	plans, err := store.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	require.NoError(t, store.Delete(ctx, plan.ID))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &faultyStore{MemoryPlanStore: NewMemoryPlanStore(), failing: true}
	store := NewBreakerPlanStore(inner, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.ListByClient(ctx, "client-1")
		require.ErrorIs(t, err, errBackendDown)
	}

	// Circuit is open: the backend is no longer consulted.
	inner.failing = false
	_, err := store.ListByClient(ctx, "client-1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestBreakerIgnoresDomainRejections(t *testing.T) {
	inner := &faultyStore{MemoryPlanStore: NewMemoryPlanStore()}
	store := NewBreakerPlanStore(inner, testLogger())
	ctx := context.Background()
	body := testPlanBody()

	_, err := store.Create(ctx, "client-1", body, "Map 1")
	require.NoError(t, err)

	// Duplicate labels and missing plans are expected outcomes and must
	// never accumulate toward tripping the circuit.
	for i := 0; i < 10; i++ {
		_, err = store.Create(ctx, "client-1", body, "Map 1")
		require.ErrorIs(t, err, domain.ErrDuplicateLabel)
		err = store.Delete(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}

	plans, err := store.ListByClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}
