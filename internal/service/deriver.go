package service

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/pbm-protocol-server/internal/domain"
)

// derivationCacheSize bounds the memo of derived bodies. The full input
// space is 14 conditions + 12 protocols, so the cache holds every valid
// derivation once warmed.
const derivationCacheSize = 64

// memoKey identifies one derivation input. Deterministic derivation over an
// immutable catalog makes memoization safe.
type memoKey struct {
	family     domain.DeviceFamily
	condition  domain.ConditionTag
	protocolID int
}

// DeriverService turns (device family, selector) into a validated plan body
// by catalog lookup. It implements domain.Deriver.
type DeriverService struct {
	log     *logrus.Logger
	catalog domain.Catalog
	memo    *lru.Cache[memoKey, *domain.PlanBody]
}

// NewDeriverService creates a new derivation engine over the given catalog.
func NewDeriverService(logger *logrus.Logger, cat domain.Catalog) (*DeriverService, error) {
	memo, err := lru.New[memoKey, *domain.PlanBody](derivationCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating derivation cache: %w", err)
	}
	return &DeriverService{
		log:     logger,
		catalog: cat,
		memo:    memo,
	}, nil
}

// Derive produces the plan body for a device family and its selector: a
// condition tag for the three-phase helmet, a protocol id for the
// four-quadrant helmet. It never persists and never assigns a label.
func (d *DeriverService) Derive(family domain.DeviceFamily, selector domain.Selector) (*domain.PlanBody, error) {
	key, err := d.resolveSelector(family, selector)
	if err != nil {
		return nil, err
	}

	if cached, ok := d.memo.Get(key); ok {
		return clonePlanBody(cached), nil
	}

	var body *domain.PlanBody
	switch family {
	case domain.THREE_PHASE:
		body, err = d.deriveThreePhase(key.condition)
	case domain.FOUR_QUADRANT:
		body, err = d.deriveFourQuadrant(key.protocolID)
	}
	if err != nil {
		return nil, err
	}

	// A catalog that passed load validation cannot produce an invalid body;
	// this re-check guards against catalog bugs and is fatal, not retried.
	if err := body.Validate(); err != nil {
		d.log.WithFields(logrus.Fields{
			"device_family": family,
			"condition":     key.condition,
			"protocol_id":   key.protocolID,
			"catalog":       d.catalog.Version(),
			"error":         err,
		}).Error("Catalog yielded out-of-range plan parameters")
		return nil, fmt.Errorf("deriving plan: %w", err)
	}

	d.memo.Add(key, clonePlanBody(body))

	d.log.WithFields(logrus.Fields{
		"device_family": family,
		"condition":     key.condition,
		"protocol_id":   key.protocolID,
	}).Debug("Plan body derived")

	return body, nil
}

// resolveSelector type-checks the selector against the device family.
func (d *DeriverService) resolveSelector(family domain.DeviceFamily, selector domain.Selector) (memoKey, error) {
	switch family {
	case domain.THREE_PHASE:
		var tag domain.ConditionTag
		switch s := selector.(type) {
		case domain.ConditionTag:
			tag = s
		case string:
			tag = domain.ConditionTag(s)
		default:
			return memoKey{}, fmt.Errorf("deriving plan: %w: %s expects a condition tag, got %T",
				domain.ErrInvalidSelectorForFamily, family, selector)
		}
		return memoKey{family: family, condition: tag}, nil

	case domain.FOUR_QUADRANT:
		id, ok := selector.(int)
		if !ok {
			return memoKey{}, fmt.Errorf("deriving plan: %w: %s expects a protocol id, got %T",
				domain.ErrInvalidSelectorForFamily, family, selector)
		}
		return memoKey{family: family, protocolID: id}, nil

	default:
		return memoKey{}, fmt.Errorf("deriving plan: %w: unknown device family %q",
			domain.ErrInvalidSelectorForFamily, family)
	}
}

func (d *DeriverService) deriveThreePhase(condition domain.ConditionTag) (*domain.PlanBody, error) {
	phases, err := d.catalog.ThreePhase(condition)
	if err != nil {
		return nil, fmt.Errorf("deriving plan: %w", err)
	}
	return &domain.PlanBody{
		Family:    domain.THREE_PHASE,
		Condition: condition,
		Phases:    phases[:],
	}, nil
}

func (d *DeriverService) deriveFourQuadrant(protocolID int) (*domain.PlanBody, error) {
	steps, cycles, err := d.catalog.FourQuadrant(protocolID)
	if err != nil {
		return nil, fmt.Errorf("deriving plan: %w", err)
	}
	return &domain.PlanBody{
		Family:     domain.FOUR_QUADRANT,
		ProtocolID: protocolID,
		Steps:      steps[:],
		Cycles:     cycles,
	}, nil
}

// clonePlanBody deep-copies a body so memoized data is never shared with
// callers.
func clonePlanBody(b *domain.PlanBody) *domain.PlanBody {
	out := *b
	if b.Phases != nil {
		out.Phases = append([]domain.PhaseDefinition(nil), b.Phases...)
	}
	if b.Steps != nil {
		out.Steps = append([]domain.QuadrantStep(nil), b.Steps...)
	}
	return &out
}
