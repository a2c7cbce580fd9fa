package repository

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pbm-protocol-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testPlanBody() *domain.PlanBody {
	return &domain.PlanBody{
		Family:    domain.THREE_PHASE,
		Condition: domain.ANXIETY,
		Phases: []domain.PhaseDefinition{
			{Name: domain.INITIAL, Window: "Weeks 1-4", SessionsPerWeek: 3, DurationMin: 20, FrequencyHz: 10, IntensityPct: 50},
			{Name: domain.INTERMEDIATE, Window: "Weeks 5-8", SessionsPerWeek: 3, DurationMin: 25, FrequencyHz: 10, IntensityPct: 65},
			{Name: domain.ADVANCED, Window: "Weeks 9-12", SessionsPerWeek: 2, DurationMin: 30, FrequencyHz: 10, IntensityPct: 80},
		},
	}
}
