package domain

import (
	"errors"
	"fmt"
	"time"
)

// PhaseDefinition is one stage of a three-phase treatment plan.
type PhaseDefinition struct {
	Name            PhaseName `json:"name" mapstructure:"phase"`
	Window          string    `json:"window" mapstructure:"window"`
	SessionsPerWeek int       `json:"sessions_per_week" mapstructure:"cadence"`
	DurationMin     int       `json:"duration_min" mapstructure:"duration_min"`
	FrequencyHz     float64   `json:"frequency_hz" mapstructure:"frequency_hz"`
	IntensityPct    int       `json:"intensity_percent" mapstructure:"intensity_percent"`
}

// Validate checks a single phase against the hardware parameter envelope.
func (p *PhaseDefinition) Validate() error {
	if !p.Name.IsValid() {
		return fmt.Errorf("phase validation: invalid phase name %q", p.Name)
	}
	if p.Window == "" {
		return fmt.Errorf("phase %s validation: %w", p.Name, errors.New("window label is required"))
	}
	if p.SessionsPerWeek < 1 {
		return fmt.Errorf("phase %s validation: %w", p.Name, errors.New("cadence must be at least one session per week"))
	}
	if p.DurationMin <= 0 {
		return fmt.Errorf("phase %s validation: %w: duration %d min", p.Name, ErrOutOfRangeParameter, p.DurationMin)
	}
	if p.FrequencyHz <= 0 {
		return fmt.Errorf("phase %s validation: %w: frequency %g Hz", p.Name, ErrOutOfRangeParameter, p.FrequencyHz)
	}
	if p.IntensityPct < 0 || p.IntensityPct > 100 {
		return fmt.Errorf("phase %s validation: %w: intensity %d%%", p.Name, ErrOutOfRangeParameter, p.IntensityPct)
	}
	return nil
}

// QuadrantStep is one stimulation step of a four-quadrant plan. A plan's
// four steps run in order and the whole sequence repeats for the plan's
// cycle count.
type QuadrantStep struct {
	Quadrant     Quadrant `json:"quadrant"`
	PulseHz      float64  `json:"pulse_hz"`
	IntensityPct int      `json:"intensity_percent"`
	DurationMin  int      `json:"duration_min"`
}

// Validate checks a single quadrant step against the hardware envelope.
func (s *QuadrantStep) Validate() error {
	if !s.Quadrant.IsValid() {
		return fmt.Errorf("quadrant step validation: invalid quadrant %q", s.Quadrant)
	}
	if s.PulseHz <= 0 {
		return fmt.Errorf("quadrant %s validation: %w: pulse %g Hz", s.Quadrant, ErrOutOfRangeParameter, s.PulseHz)
	}
	if s.IntensityPct < 0 || s.IntensityPct > 100 {
		return fmt.Errorf("quadrant %s validation: %w: intensity %d%%", s.Quadrant, ErrOutOfRangeParameter, s.IntensityPct)
	}
	if s.DurationMin <= 0 {
		return fmt.Errorf("quadrant %s validation: %w: duration %d min", s.Quadrant, ErrOutOfRangeParameter, s.DurationMin)
	}
	return nil
}

// PlanBody is a derived treatment plan before labeling and persistence.
// Exactly one of the two shapes is populated, selected by Family:
// THREE_PHASE carries Condition and three ordered Phases; FOUR_QUADRANT
// carries ProtocolID, four Steps and a cycle count.
type PlanBody struct {
	Family     DeviceFamily      `json:"device_family"`
	Condition  ConditionTag      `json:"condition_tag,omitempty"`
	ProtocolID int               `json:"protocol_id,omitempty"`
	Phases     []PhaseDefinition `json:"phases,omitempty"`
	Steps      []QuadrantStep    `json:"steps,omitempty"`
	Cycles     int               `json:"cycles,omitempty"`
}

// Validate enforces the structural invariants of a plan body: shape matches
// family, three-phase plans have the Initial/Intermediate/Advanced sequence
// with one constant frequency, four-quadrant plans have exactly four steps
// and at least one cycle, and every segment is within hardware bounds.
func (b *PlanBody) Validate() error {
	switch b.Family {
	case THREE_PHASE:
		return b.validateThreePhase()
	case FOUR_QUADRANT:
		return b.validateFourQuadrant()
	default:
		return fmt.Errorf("plan body validation: invalid device family %q", b.Family)
	}
}

func (b *PlanBody) validateThreePhase() error {
	if !b.Condition.IsValid() {
		return fmt.Errorf("plan body validation: %w: %q", ErrUnknownCondition, b.Condition)
	}
	if b.ProtocolID != 0 || len(b.Steps) != 0 || b.Cycles != 0 {
		return errors.New("plan body validation: three-phase plan carries four-quadrant fields")
	}
	if len(b.Phases) != 3 {
		return fmt.Errorf("plan body validation: expected 3 phases, got %d", len(b.Phases))
	}
	order := PhaseOrder()
	for i := range b.Phases {
		if b.Phases[i].Name != order[i] {
			return fmt.Errorf("plan body validation: phase %d is %s, expected %s", i, b.Phases[i].Name, order[i])
		}
		if err := b.Phases[i].Validate(); err != nil {
			return fmt.Errorf("plan body validation: %w", err)
		}
	}
	// Frequency is derived once per condition and held across all phases.
	for i := 1; i < len(b.Phases); i++ {
		if b.Phases[i].FrequencyHz != b.Phases[0].FrequencyHz {
			return fmt.Errorf("plan body validation: %w: frequency varies across phases (%g vs %g Hz)",
				ErrOutOfRangeParameter, b.Phases[i].FrequencyHz, b.Phases[0].FrequencyHz)
		}
	}
	return nil
}

func (b *PlanBody) validateFourQuadrant() error {
	if !ValidProtocolID(b.ProtocolID) {
		return fmt.Errorf("plan body validation: %w: %d", ErrUnknownProtocolID, b.ProtocolID)
	}
	if b.Condition != "" || len(b.Phases) != 0 {
		return errors.New("plan body validation: four-quadrant plan carries three-phase fields")
	}
	if len(b.Steps) != 4 {
		return fmt.Errorf("plan body validation: expected 4 quadrant steps, got %d", len(b.Steps))
	}
	if b.Cycles < 1 {
		return fmt.Errorf("plan body validation: %w: cycle count %d", ErrOutOfRangeParameter, b.Cycles)
	}
	for i := range b.Steps {
		if err := b.Steps[i].Validate(); err != nil {
			return fmt.Errorf("plan body validation: %w", err)
		}
	}
	return nil
}

// ProtocolPlan is a labeled, persisted treatment plan. The body is immutable
// once the plan is stored; only the label may change, and only through the
// relabel repair operation.
type ProtocolPlan struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Body      PlanBody  `json:"body"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks a persisted plan record.
func (p *ProtocolPlan) Validate() error {
	if p.ID == "" {
		return errors.New("plan validation: ID is required")
	}
	if p.ClientID == "" {
		return errors.New("plan validation: client ID is required")
	}
	if _, err := ParseLabel(p.Label); err != nil {
		return fmt.Errorf("plan validation: %w", err)
	}
	if p.CreatedAt.IsZero() {
		return errors.New("plan validation: creation timestamp is required")
	}
	return p.Body.Validate()
}

// PlanSummary is the device-agnostic view of a plan body produced by the
// device adapter, used for logging and display.
type PlanSummary struct {
	Family       DeviceFamily `json:"device_family"`
	Selector     string       `json:"selector"`
	Description  string       `json:"description"`
	SegmentCount int          `json:"segment_count"`
}
