package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbm-protocol-server/internal/domain"
)

func TestNormalizeCoversEveryFamily(t *testing.T) {
	deriver := newTestDeriver(t)
	adapter := NewAdapterService()

	selectors := map[domain.DeviceFamily]domain.Selector{
		domain.THREE_PHASE:   domain.FOCUS,
		domain.FOUR_QUADRANT: 4,
	}

	for family, selector := range selectors {
		body, err := deriver.Derive(family, selector)
		require.NoError(t, err, "family %s", family)

		summary, err := adapter.Normalize(body)
		require.NoError(t, err, "family %s", family)
		assert.Equal(t, family, summary.Family)
		assert.NotEmpty(t, summary.Selector)
		assert.NotEmpty(t, summary.Description)
	}
}

func TestNormalizeThreePhase(t *testing.T) {
	deriver := newTestDeriver(t)
	adapter := NewAdapterService()

	body, err := deriver.Derive(domain.THREE_PHASE, domain.MEMORY)
	require.NoError(t, err)

	summary, err := adapter.Normalize(body)
	require.NoError(t, err)
	assert.Equal(t, "MEMORY", summary.Selector)
	assert.Equal(t, 3, summary.SegmentCount)
	assert.Contains(t, summary.Description, "MEMORY")
}

func TestNormalizeFourQuadrant(t *testing.T) {
	deriver := newTestDeriver(t)
	adapter := NewAdapterService()

	body, err := deriver.Derive(domain.FOUR_QUADRANT, 12)
	require.NoError(t, err)

	summary, err := adapter.Normalize(body)
	require.NoError(t, err)
	assert.Equal(t, "12", summary.Selector)
	assert.Equal(t, 4, summary.SegmentCount)
	assert.Contains(t, summary.Description, "Protocol 12")
}

func TestNormalizeRejectsUnknownFamily(t *testing.T) {
	adapter := NewAdapterService()

	_, err := adapter.Normalize(&domain.PlanBody{Family: "FIVE_PHASE"})
	assert.Error(t, err)

	_, err = adapter.Normalize(nil)
	assert.Error(t, err)
}
