package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pbm-protocol-server/internal/domain"
)

// VersioningService assigns sequential "Map N" labels to newly derived plans
// and repairs label drift. The per-client plan history in the store is the
// exclusive source of truth: counts are re-read on every call and never
// cached, which is what stands in for a lock. It implements domain.Versioner.
type VersioningService struct {
	log     *logrus.Logger
	store   domain.PlanStore
	adapter domain.DeviceAdapter
}

// NewVersioningService creates a new versioning and labeling service.
func NewVersioningService(logger *logrus.Logger, store domain.PlanStore, adapter domain.DeviceAdapter) *VersioningService {
	return &VersioningService{
		log:     logger,
		store:   store,
		adapter: adapter,
	}
}

// CreateAndLabel computes the next label for the client from current history
// and persists the plan. Two creations racing for the same client can read
// the same count; the store's (client, label) uniqueness constraint rejects
// the loser, and the service retries exactly once with a fresh read. A
// second collision is escalated as ErrLabelConflictUnresolved.
func (s *VersioningService) CreateAndLabel(ctx context.Context, clientID string, body *domain.PlanBody) (*domain.ProtocolPlan, error) {
	if clientID == "" {
		return nil, domain.NewValidationError("client_id", "client ID is required", clientID)
	}
	if body == nil {
		return nil, domain.NewValidationError("body", "plan body is required", nil)
	}
	if err := body.Validate(); err != nil {
		return nil, fmt.Errorf("labeling plan: %w", err)
	}

	summary, err := s.adapter.Normalize(body)
	if err != nil {
		return nil, fmt.Errorf("labeling plan: %w", err)
	}

	plan, err := s.tryCreate(ctx, clientID, body)
	if err == nil {
		s.logCreated(plan, summary)
		return plan, nil
	}
	if !errors.Is(err, domain.ErrDuplicateLabel) {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"client_id": clientID,
	}).Warn("Label collision on create, retrying with fresh count")

	plan, err = s.tryCreate(ctx, clientID, body)
	if err == nil {
		s.logCreated(plan, summary)
		return plan, nil
	}
	if errors.Is(err, domain.ErrDuplicateLabel) {
		// Back-to-back collisions point at a store anomaly, not a routine
		// race; surface it instead of spinning.
		return nil, fmt.Errorf("labeling plan for client %s: %w: %w",
			clientID, domain.ErrLabelConflictUnresolved, err)
	}
	return nil, err
}

// tryCreate is one read-count-then-write attempt.
func (s *VersioningService) tryCreate(ctx context.Context, clientID string, body *domain.PlanBody) (*domain.ProtocolPlan, error) {
	history, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("labeling plan: reading history for client %s: %w", clientID, err)
	}

	label := domain.FormatLabel(len(history) + 1)
	plan, err := s.store.Create(ctx, clientID, body, label)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateLabel) {
			return nil, err
		}
		return nil, fmt.Errorf("labeling plan: persisting %s for client %s: %w", label, clientID, err)
	}
	return plan, nil
}

func (s *VersioningService) logCreated(plan *domain.ProtocolPlan, summary *domain.PlanSummary) {
	s.log.WithFields(logrus.Fields{
		"plan_id":       plan.ID,
		"client_id":     plan.ClientID,
		"label":         plan.Label,
		"device_family": summary.Family,
		"selector":      summary.Selector,
		"segments":      summary.SegmentCount,
	}).Info("Plan labeled and persisted")
}

// RelabelClient rewrites the client's labels to Map 1..Map K in creation
// order, touching only rows whose label differs. Running it twice in a row
// performs zero updates the second time; plan bodies are never altered.
//
// Out-of-band edits can leave labels in arbitrary arrangements, including
// ones where a plan's desired label is currently held by another plan (a
// swap). Drifted plans are therefore parked on unique temporary labels
// before the final labels are written, so the store's uniqueness constraint
// never rejects an intermediate state.
func (s *VersioningService) RelabelClient(ctx context.Context, clientID string) (int, error) {
	if clientID == "" {
		return 0, domain.NewValidationError("client_id", "client ID is required", clientID)
	}

	history, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("relabeling client %s: %w", clientID, err)
	}

	type change struct {
		plan *domain.ProtocolPlan
		want string
	}
	var changes []change
	for i, plan := range history {
		if want := domain.FormatLabel(i + 1); plan.Label != want {
			changes = append(changes, change{plan: plan, want: want})
		}
	}
	if len(changes) == 0 {
		s.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"plans":     len(history),
		}).Debug("Labels already contiguous, nothing to relabel")
		return 0, nil
	}

	for _, ch := range changes {
		parked := "relabel:" + ch.plan.ID
		if _, err := s.store.UpdateLabel(ctx, ch.plan.ID, parked); err != nil {
			return 0, fmt.Errorf("relabeling client %s: parking plan %s: %w", clientID, ch.plan.ID, err)
		}
	}
	for _, ch := range changes {
		if _, err := s.store.UpdateLabel(ctx, ch.plan.ID, ch.want); err != nil {
			return 0, fmt.Errorf("relabeling client %s: plan %s to %q: %w",
				clientID, ch.plan.ID, ch.want, err)
		}
		s.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"plan_id":   ch.plan.ID,
			"old_label": ch.plan.Label,
			"new_label": ch.want,
		}).Info("Plan relabeled")
	}

	s.log.WithFields(logrus.Fields{
		"client_id": clientID,
		"plans":     len(history),
		"updated":   len(changes),
	}).Info("Relabel pass completed")

	return len(changes), nil
}

// DeletePlan removes a plan from history. An already-absent plan is success;
// remaining labels are left as-is until the caller explicitly relabels.
func (s *VersioningService) DeletePlan(ctx context.Context, planID string) error {
	if planID == "" {
		return domain.NewValidationError("plan_id", "plan ID is required", planID)
	}

	err := s.store.Delete(ctx, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.WithField("plan_id", planID).Debug("Delete of absent plan treated as success")
			return nil
		}
		return fmt.Errorf("deleting plan %s: %w", planID, err)
	}

	s.log.WithField("plan_id", planID).Info("Plan deleted")
	return nil
}
