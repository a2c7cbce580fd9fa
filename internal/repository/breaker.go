package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pbm-protocol-server/internal/domain"
)

// BreakerPlanStore decorates a domain.PlanStore with a circuit breaker so a
// failing backend degrades to fast ErrStoreUnavailable rejections instead of
// piling up timeouts. The breaker never retries on behalf of the core; it
// only fails fast, which keeps the error contract intact.
//
// Domain-level rejections (duplicate label, not found) are expected outcomes
// and do not count as failures.
type BreakerPlanStore struct {
	inner   domain.PlanStore
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewBreakerPlanStore wraps a plan store with a circuit breaker.
func NewBreakerPlanStore(inner domain.PlanStore, logger *logrus.Logger) *BreakerPlanStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "plan-store",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Plan store circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrDuplicateLabel) ||
				errors.Is(err, domain.ErrNotFound)
		},
	})

	return &BreakerPlanStore{
		inner:   inner,
		breaker: breaker,
		log:     logger,
	}
}

// execute runs op through the breaker, mapping an open circuit to
// ErrStoreUnavailable.
func (b *BreakerPlanStore) execute(op func() (any, error)) (any, error) {
	result, err := b.breaker.Execute(op)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("plan store circuit open: %w", domain.ErrStoreUnavailable)
		}
		return nil, err
	}
	return result, nil
}

// ListByClient delegates through the breaker.
func (b *BreakerPlanStore) ListByClient(ctx context.Context, clientID string) ([]*domain.ProtocolPlan, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.ListByClient(ctx, clientID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.ProtocolPlan), nil
}

// Create delegates through the breaker.
func (b *BreakerPlanStore) Create(ctx context.Context, clientID string, body *domain.PlanBody, label string) (*domain.ProtocolPlan, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.Create(ctx, clientID, body, label)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.ProtocolPlan), nil
}

// UpdateLabel delegates through the breaker.
func (b *BreakerPlanStore) UpdateLabel(ctx context.Context, planID string, newLabel string) (*domain.ProtocolPlan, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.UpdateLabel(ctx, planID, newLabel)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.ProtocolPlan), nil
}

// Delete delegates through the breaker.
func (b *BreakerPlanStore) Delete(ctx context.Context, planID string) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, planID)
	})
	return err
}

// ClientIDs delegates through the breaker.
func (b *BreakerPlanStore) ClientIDs(ctx context.Context) ([]string, error) {
	result, err := b.execute(func() (any, error) {
		return b.inner.ClientIDs(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
