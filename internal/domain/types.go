// Package domain contains the core business entities for photobiomodulation
// (PBM) treatment protocol derivation and per-client plan versioning.
//
// A plan targets one of two helmet hardware families: a generic three-phase
// helmet driven by the client's presenting condition, and an advanced helmet
// driven by a numbered stimulation protocol that cycles through four scalp
// quadrants.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionTag identifies the client's primary presenting concern.
// The set is closed; catalog entries exist for every tag and for no others.
type ConditionTag string

const (
	MEMORY       ConditionTag = "MEMORY"
	ANXIETY      ConditionTag = "ANXIETY"
	DEPRESSION   ConditionTag = "DEPRESSION"
	SLEEP        ConditionTag = "SLEEP"
	FOCUS        ConditionTag = "FOCUS"
	TBI          ConditionTag = "TBI"
	STROKE       ConditionTag = "STROKE"
	PTSD         ConditionTag = "PTSD"
	MIGRAINE     ConditionTag = "MIGRAINE"
	PARKINSONS   ConditionTag = "PARKINSONS"
	ADDICTION    ConditionTag = "ADDICTION"
	CHRONIC_PAIN ConditionTag = "CHRONIC_PAIN"
	AUTISM       ConditionTag = "AUTISM"
	PERFORMANCE  ConditionTag = "PERFORMANCE"
)

// AllConditionTags returns the closed condition set in catalog order.
func AllConditionTags() []ConditionTag {
	return []ConditionTag{
		MEMORY, ANXIETY, DEPRESSION, SLEEP, FOCUS, TBI, STROKE,
		PTSD, MIGRAINE, PARKINSONS, ADDICTION, CHRONIC_PAIN, AUTISM, PERFORMANCE,
	}
}

// IsValid reports whether the tag belongs to the closed condition set.
func (c ConditionTag) IsValid() bool {
	switch c {
	case MEMORY, ANXIETY, DEPRESSION, SLEEP, FOCUS, TBI, STROKE,
		PTSD, MIGRAINE, PARKINSONS, ADDICTION, CHRONIC_PAIN, AUTISM, PERFORMANCE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the condition tag.
func (c ConditionTag) String() string {
	return string(c)
}

// DeviceFamily identifies the helmet hardware class a plan targets.
// It is decided once at plan-creation time and carried explicitly on the
// persisted record; device family is never inferred from labels or other
// loosely-typed fields.
type DeviceFamily string

const (
	THREE_PHASE   DeviceFamily = "THREE_PHASE"
	FOUR_QUADRANT DeviceFamily = "FOUR_QUADRANT"
)

// IsValid reports whether the family is one of the two supported helmets.
func (f DeviceFamily) IsValid() bool {
	switch f {
	case THREE_PHASE, FOUR_QUADRANT:
		return true
	default:
		return false
	}
}

// String returns the string representation of the device family.
func (f DeviceFamily) String() string {
	return string(f)
}

// PhaseName names one of the three sequential treatment stages of a
// three-phase plan.
type PhaseName string

const (
	INITIAL      PhaseName = "INITIAL"
	INTERMEDIATE PhaseName = "INTERMEDIATE"
	ADVANCED     PhaseName = "ADVANCED"
)

// PhaseOrder returns the required phase sequence for a three-phase plan.
func PhaseOrder() [3]PhaseName {
	return [3]PhaseName{INITIAL, INTERMEDIATE, ADVANCED}
}

// IsValid reports whether the phase name is one of the three stages.
func (p PhaseName) IsValid() bool {
	switch p {
	case INITIAL, INTERMEDIATE, ADVANCED:
		return true
	default:
		return false
	}
}

// Quadrant identifies one of the four scalp regions stimulated by the
// advanced helmet.
type Quadrant string

const (
	FRONTAL_LEFT    Quadrant = "FRONTAL_LEFT"
	FRONTAL_RIGHT   Quadrant = "FRONTAL_RIGHT"
	POSTERIOR_LEFT  Quadrant = "POSTERIOR_LEFT"
	POSTERIOR_RIGHT Quadrant = "POSTERIOR_RIGHT"
)

// IsValid reports whether the quadrant is one of the four scalp regions.
func (q Quadrant) IsValid() bool {
	switch q {
	case FRONTAL_LEFT, FRONTAL_RIGHT, POSTERIOR_LEFT, POSTERIOR_RIGHT:
		return true
	default:
		return false
	}
}

// Protocol id bounds for the four-quadrant helmet.
const (
	MinProtocolID = 1
	MaxProtocolID = 12
)

// ValidProtocolID reports whether id is within the catalog's 1..12 range.
func ValidProtocolID(id int) bool {
	return id >= MinProtocolID && id <= MaxProtocolID
}

// LabelPrefix is the human-readable prefix of every plan label.
const LabelPrefix = "Map "

// FormatLabel renders the 1-based sequence number n as a plan label,
// e.g. FormatLabel(3) == "Map 3".
func FormatLabel(n int) string {
	return LabelPrefix + strconv.Itoa(n)
}

// ParseLabel extracts the sequence number from a plan label. It returns an
// error for anything that is not exactly "Map N" with N >= 1; labels written
// by out-of-band edits can fail here and are repaired by relabeling.
func ParseLabel(label string) (int, error) {
	rest, ok := strings.CutPrefix(label, LabelPrefix)
	if !ok {
		return 0, fmt.Errorf("label %q: missing %q prefix", label, LabelPrefix)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("label %q: sequence is not an integer", label)
	}
	if n < 1 {
		return 0, fmt.Errorf("label %q: sequence must be >= 1", label)
	}
	return n, nil
}
