package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbm-protocol-server/internal/domain"
)

// MemoryPlanStore is an in-memory domain.PlanStore used by service tests and
// by the conflict-injection harness. It enforces the same (client, label)
// uniqueness as the real backends.
type MemoryPlanStore struct {
	mu    sync.Mutex
	plans map[string]*domain.ProtocolPlan
	seq   int64
}

// NewMemoryPlanStore creates an empty in-memory plan store.
func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{
		plans: make(map[string]*domain.ProtocolPlan),
	}
}

// ListByClient returns the client's plans ordered by creation time ascending.
func (m *MemoryPlanStore) ListByClient(ctx context.Context, clientID string) ([]*domain.ProtocolPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plans := []*domain.ProtocolPlan{}
	for _, p := range m.plans {
		if p.ClientID == clientID {
			plans = append(plans, clonePlan(p))
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].CreatedAt.Before(plans[j].CreatedAt)
		}
		return plans[i].Label < plans[j].Label
	})
	return plans, nil
}

// Create inserts a new labeled plan, rejecting label collisions.
func (m *MemoryPlanStore) Create(ctx context.Context, clientID string, body *domain.PlanBody, label string) (*domain.ProtocolPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.plans {
		if p.ClientID == clientID && p.Label == label {
			return nil, fmt.Errorf("creating plan %q for client %s: %w", label, clientID, domain.ErrDuplicateLabel)
		}
	}

	// Strictly increasing timestamps keep creation order unambiguous even
	// when two creates land within the clock's resolution.
	m.seq++
	plan := &domain.ProtocolPlan{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Body:      *body,
		Label:     label,
		CreatedAt: time.Now().UTC().Add(time.Duration(m.seq) * time.Microsecond),
	}
	m.plans[plan.ID] = plan
	return clonePlan(plan), nil
}

// UpdateLabel rewrites a plan's label.
func (m *MemoryPlanStore) UpdateLabel(ctx context.Context, planID string, newLabel string) (*domain.ProtocolPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan, ok := m.plans[planID]
	if !ok {
		return nil, fmt.Errorf("updating label of plan %s: %w", planID, domain.ErrNotFound)
	}
	for _, p := range m.plans {
		if p.ID != planID && p.ClientID == plan.ClientID && p.Label == newLabel {
			return nil, fmt.Errorf("updating label of plan %s to %q: %w", planID, newLabel, domain.ErrDuplicateLabel)
		}
	}
	plan.Label = newLabel
	return clonePlan(plan), nil
}

// Delete removes a plan; an absent plan yields ErrNotFound.
func (m *MemoryPlanStore) Delete(ctx context.Context, planID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[planID]; !ok {
		return fmt.Errorf("deleting plan %s: %w", planID, domain.ErrNotFound)
	}
	delete(m.plans, planID)
	return nil
}

// ClientIDs returns the distinct client ids present in the store.
func (m *MemoryPlanStore) ClientIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	var ids []string
	for _, p := range m.plans {
		if !seen[p.ClientID] {
			seen[p.ClientID] = true
			ids = append(ids, p.ClientID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func clonePlan(p *domain.ProtocolPlan) *domain.ProtocolPlan {
	out := *p
	if p.Body.Phases != nil {
		out.Body.Phases = append([]domain.PhaseDefinition(nil), p.Body.Phases...)
	}
	if p.Body.Steps != nil {
		out.Body.Steps = append([]domain.QuadrantStep(nil), p.Body.Steps...)
	}
	return &out
}
