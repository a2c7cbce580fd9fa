package service

import (
	"fmt"
	"strconv"

	"github.com/pbm-protocol-server/internal/domain"
)

// AdapterService normalizes the two plan shapes into a device-agnostic
// summary so display and logging code never branches on device family.
// It implements domain.DeviceAdapter.
type AdapterService struct{}

// NewAdapterService creates a new device-family adapter.
func NewAdapterService() *AdapterService {
	return &AdapterService{}
}

// Normalize is total over the closed DeviceFamily set. A family outside the
// set is a typed error, never a silent fallthrough; adding a third helmet
// means extending this switch.
func (a *AdapterService) Normalize(body *domain.PlanBody) (*domain.PlanSummary, error) {
	if body == nil {
		return nil, fmt.Errorf("normalizing plan: body is nil")
	}

	switch body.Family {
	case domain.THREE_PHASE:
		if len(body.Phases) == 0 {
			return nil, fmt.Errorf("normalizing plan: three-phase body has no phases")
		}
		return &domain.PlanSummary{
			Family:   domain.THREE_PHASE,
			Selector: body.Condition.String(),
			Description: fmt.Sprintf("%s three-phase course at %g Hz, %d sessions/week to start",
				body.Condition, body.Phases[0].FrequencyHz, body.Phases[0].SessionsPerWeek),
			SegmentCount: len(body.Phases),
		}, nil

	case domain.FOUR_QUADRANT:
		return &domain.PlanSummary{
			Family:   domain.FOUR_QUADRANT,
			Selector: strconv.Itoa(body.ProtocolID),
			Description: fmt.Sprintf("Protocol %d four-quadrant sequence, %d cycles",
				body.ProtocolID, body.Cycles),
			SegmentCount: len(body.Steps),
		}, nil

	default:
		return nil, fmt.Errorf("normalizing plan: %w: unknown device family %q",
			domain.ErrInvalidSelectorForFamily, body.Family)
	}
}
