package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionTagIsValid(t *testing.T) {
	for _, tag := range AllConditionTags() {
		assert.True(t, tag.IsValid(), "tag %s should be valid", tag)
	}

	assert.False(t, ConditionTag("").IsValid())
	assert.False(t, ConditionTag("VERTIGO").IsValid())
	assert.False(t, ConditionTag("memory").IsValid(), "tags are case-sensitive")
}

func TestAllConditionTagsIsClosedSet(t *testing.T) {
	tags := AllConditionTags()
	assert.Len(t, tags, 14)

	seen := map[ConditionTag]bool{}
	for _, tag := range tags {
		assert.False(t, seen[tag], "tag %s listed twice", tag)
		seen[tag] = true
	}
}

func TestDeviceFamilyIsValid(t *testing.T) {
	assert.True(t, THREE_PHASE.IsValid())
	assert.True(t, FOUR_QUADRANT.IsValid())
	assert.False(t, DeviceFamily("").IsValid())
	assert.False(t, DeviceFamily("FIVE_PHASE").IsValid())
}

func TestPhaseOrder(t *testing.T) {
	order := PhaseOrder()
	assert.Equal(t, [3]PhaseName{INITIAL, INTERMEDIATE, ADVANCED}, order)
	for _, name := range order {
		assert.True(t, name.IsValid())
	}
}

func TestQuadrantIsValid(t *testing.T) {
	for _, q := range []Quadrant{FRONTAL_LEFT, FRONTAL_RIGHT, POSTERIOR_LEFT, POSTERIOR_RIGHT} {
		assert.True(t, q.IsValid())
	}
	assert.False(t, Quadrant("TEMPORAL_LEFT").IsValid())
}

func TestValidProtocolID(t *testing.T) {
	assert.False(t, ValidProtocolID(0))
	assert.True(t, ValidProtocolID(1))
	assert.True(t, ValidProtocolID(12))
	assert.False(t, ValidProtocolID(13))
	assert.False(t, ValidProtocolID(-1))
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "Map 1", FormatLabel(1))
	assert.Equal(t, "Map 42", FormatLabel(42))
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    int
		wantErr bool
	}{
		{"Map 1", 1, false},
		{"Map 12", 12, false},
		{"Map 0", 0, true},
		{"Map -3", 0, true},
		{"map 1", 0, true},
		{"Map x", 0, true},
		{"Chart 1", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		n, err := ParseLabel(tt.label)
		if tt.wantErr {
			assert.Error(t, err, "label %q", tt.label)
			continue
		}
		require.NoError(t, err, "label %q", tt.label)
		assert.Equal(t, tt.want, n)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, n := range []int{1, 7, 100} {
		parsed, err := ParseLabel(FormatLabel(n))
		require.NoError(t, err)
		assert.Equal(t, n, parsed)
	}
}
