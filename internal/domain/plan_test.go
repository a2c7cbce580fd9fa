package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validThreePhaseBody() *PlanBody {
	phases := make([]PhaseDefinition, 3)
	order := PhaseOrder()
	windows := []string{"Weeks 1-4", "Weeks 5-8", "Weeks 9-12"}
	for i := range phases {
		phases[i] = PhaseDefinition{
			Name:            order[i],
			Window:          windows[i],
			SessionsPerWeek: 3,
			DurationMin:     20 + 5*i,
			FrequencyHz:     10,
			IntensityPct:    40 + 20*i,
		}
	}
	return &PlanBody{
		Family:    THREE_PHASE,
		Condition: ANXIETY,
		Phases:    phases,
	}
}

func validFourQuadrantBody() *PlanBody {
	quads := []Quadrant{FRONTAL_LEFT, FRONTAL_RIGHT, POSTERIOR_LEFT, POSTERIOR_RIGHT}
	steps := make([]QuadrantStep, 4)
	for i := range steps {
		steps[i] = QuadrantStep{
			Quadrant:     quads[i],
			PulseHz:      40,
			IntensityPct: 60,
			DurationMin:  3,
		}
	}
	return &PlanBody{
		Family:     FOUR_QUADRANT,
		ProtocolID: 7,
		Steps:      steps,
		Cycles:     3,
	}
}

func TestPlanBodyValidateThreePhase(t *testing.T) {
	require.NoError(t, validThreePhaseBody().Validate())
}

func TestPlanBodyValidateFourQuadrant(t *testing.T) {
	require.NoError(t, validFourQuadrantBody().Validate())
}

func TestPlanBodyValidateRejectsDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlanBody)
		verify func(*testing.T, error)
	}{
		{
			name:   "unknown condition",
			mutate: func(b *PlanBody) { b.Condition = "VERTIGO" },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnknownCondition) },
		},
		{
			name:   "missing phase",
			mutate: func(b *PlanBody) { b.Phases = b.Phases[:2] },
			verify: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name: "phases out of order",
			mutate: func(b *PlanBody) {
				b.Phases[0], b.Phases[2] = b.Phases[2], b.Phases[0]
			},
			verify: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name:   "frequency varies across phases",
			mutate: func(b *PlanBody) { b.Phases[2].FrequencyHz = 40 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOutOfRangeParameter) },
		},
		{
			name:   "intensity above 100",
			mutate: func(b *PlanBody) { b.Phases[1].IntensityPct = 101 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOutOfRangeParameter) },
		},
		{
			name:   "zero duration",
			mutate: func(b *PlanBody) { b.Phases[0].DurationMin = 0 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOutOfRangeParameter) },
		},
		{
			name:   "cross-family fields",
			mutate: func(b *PlanBody) { b.Cycles = 2 },
			verify: func(t *testing.T, err error) { assert.Error(t, err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validThreePhaseBody()
			tt.mutate(body)
			err := body.Validate()
			require.Error(t, err)
			tt.verify(t, err)
		})
	}
}

func TestPlanBodyValidateFourQuadrantRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlanBody)
		verify func(*testing.T, error)
	}{
		{
			name:   "protocol id below range",
			mutate: func(b *PlanBody) { b.ProtocolID = 0 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnknownProtocolID) },
		},
		{
			name:   "protocol id above range",
			mutate: func(b *PlanBody) { b.ProtocolID = 13 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnknownProtocolID) },
		},
		{
			name:   "three steps only",
			mutate: func(b *PlanBody) { b.Steps = b.Steps[:3] },
			verify: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name:   "zero cycles",
			mutate: func(b *PlanBody) { b.Cycles = 0 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOutOfRangeParameter) },
		},
		{
			name:   "negative pulse",
			mutate: func(b *PlanBody) { b.Steps[2].PulseHz = -1 },
			verify: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOutOfRangeParameter) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validFourQuadrantBody()
			tt.mutate(body)
			err := body.Validate()
			require.Error(t, err)
			tt.verify(t, err)
		})
	}
}

func TestProtocolPlanValidate(t *testing.T) {
	plan := &ProtocolPlan{
		ID:        "plan-1",
		ClientID:  "client-1",
		Body:      *validThreePhaseBody(),
		Label:     "Map 1",
		CreatedAt: time.Now(),
	}
	require.NoError(t, plan.Validate())

	bad := *plan
	bad.Label = "Map zero"
	assert.Error(t, bad.Validate())

	bad = *plan
	bad.ClientID = ""
	assert.Error(t, bad.Validate())
}
