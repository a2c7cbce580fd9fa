// Package catalog loads and serves the static condition/protocol reference
// data: per-condition three-phase parameter sets for the generic helmet and
// numbered four-quadrant stimulation protocols for the advanced helmet.
//
// The catalog is loaded once at process start and is immutable for the
// process lifetime. Hot reloading is deliberately unsupported; shipping a new
// catalog means shipping a new artifact and restarting.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/pbm-protocol-server/internal/domain"
)

//go:embed data/catalog.json
var embeddedCatalog []byte

// rawPhase mirrors one phase entry of the catalog artifact.
type rawPhase struct {
	Phase            string  `json:"phase"`
	Window           string  `json:"window"`
	Cadence          int     `json:"cadence"`
	DurationMin      int     `json:"duration_min"`
	FrequencyHz      float64 `json:"frequency_hz"`
	IntensityPercent int     `json:"intensity_percent"`
}

// rawStep mirrors one quadrant step entry of the catalog artifact.
type rawStep struct {
	Quadrant         string  `json:"quadrant"`
	PulseHz          float64 `json:"pulse_hz"`
	IntensityPercent int     `json:"intensity_percent"`
	DurationMin      int     `json:"duration_min"`
}

// rawProtocol mirrors one four-quadrant protocol entry.
type rawProtocol struct {
	Cycles int       `json:"cycles"`
	Steps  []rawStep `json:"steps"`
}

// rawCatalog mirrors the catalog artifact as a whole. Protocol ids are
// stringified integers in the artifact for JSON-object keying.
type rawCatalog struct {
	Version      string                 `json:"version"`
	ThreePhase   map[string][]rawPhase  `json:"three_phase"`
	FourQuadrant map[string]rawProtocol `json:"four_quadrant"`
}

// Catalog is the in-memory reference data. It implements domain.Catalog.
type Catalog struct {
	version    string
	threePhase map[domain.ConditionTag][3]domain.PhaseDefinition
	protocols  map[int]fourQuadrantEntry
}

type fourQuadrantEntry struct {
	steps  [4]domain.QuadrantStep
	cycles int
}

// Load parses and validates a catalog artifact. Every condition in the
// closed set must be present, every protocol id in 1..12 must be present,
// and every parameter must be inside the hardware envelope; a violation is
// a build/data bug and fails the load.
func Load(data []byte, log *logrus.Logger) (*Catalog, error) {
	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("catalog validation: version is required")
	}

	c := &Catalog{
		version:    raw.Version,
		threePhase: make(map[domain.ConditionTag][3]domain.PhaseDefinition, len(raw.ThreePhase)),
		protocols:  make(map[int]fourQuadrantEntry, len(raw.FourQuadrant)),
	}

	if err := c.loadThreePhase(raw.ThreePhase); err != nil {
		return nil, err
	}
	if err := c.loadFourQuadrant(raw.FourQuadrant); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"version":    c.version,
		"conditions": len(c.threePhase),
		"protocols":  len(c.protocols),
	}).Info("Protocol catalog loaded")

	return c, nil
}

// LoadEmbedded loads the catalog artifact compiled into the binary.
func LoadEmbedded(log *logrus.Logger) (*Catalog, error) {
	return Load(embeddedCatalog, log)
}

// LoadFile loads a catalog artifact from disk, for deployments that override
// the embedded data.
func LoadFile(path string, log *logrus.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %s: %w", path, err)
	}
	return Load(data, log)
}

func (c *Catalog) loadThreePhase(entries map[string][]rawPhase) error {
	for tagName, rawPhases := range entries {
		tag := domain.ConditionTag(tagName)
		if !tag.IsValid() {
			return fmt.Errorf("catalog validation: condition %q is not in the closed set", tagName)
		}
		if len(rawPhases) != 3 {
			return fmt.Errorf("catalog validation: condition %s has %d phases, expected 3", tag, len(rawPhases))
		}

		var phases [3]domain.PhaseDefinition
		order := domain.PhaseOrder()
		for i, rp := range rawPhases {
			phases[i] = domain.PhaseDefinition{
				Name:            domain.PhaseName(rp.Phase),
				Window:          rp.Window,
				SessionsPerWeek: rp.Cadence,
				DurationMin:     rp.DurationMin,
				FrequencyHz:     rp.FrequencyHz,
				IntensityPct:    rp.IntensityPercent,
			}
			if phases[i].Name != order[i] {
				return fmt.Errorf("catalog validation: condition %s phase %d is %q, expected %s",
					tag, i, rp.Phase, order[i])
			}
			if err := phases[i].Validate(); err != nil {
				return fmt.Errorf("catalog validation: condition %s: %w", tag, err)
			}
			if phases[i].FrequencyHz != phases[0].FrequencyHz {
				return fmt.Errorf("catalog validation: condition %s: frequency varies across phases", tag)
			}
		}
		c.threePhase[tag] = phases
	}

	for _, tag := range domain.AllConditionTags() {
		if _, ok := c.threePhase[tag]; !ok {
			return fmt.Errorf("catalog validation: condition %s has no entry", tag)
		}
	}
	return nil
}

func (c *Catalog) loadFourQuadrant(entries map[string]rawProtocol) error {
	for key, rp := range entries {
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("catalog validation: protocol key %q is not an integer", key)
		}
		if !domain.ValidProtocolID(id) {
			return fmt.Errorf("catalog validation: protocol id %d outside %d..%d",
				id, domain.MinProtocolID, domain.MaxProtocolID)
		}
		if len(rp.Steps) != 4 {
			return fmt.Errorf("catalog validation: protocol %d has %d steps, expected 4", id, len(rp.Steps))
		}
		if rp.Cycles < 1 {
			return fmt.Errorf("catalog validation: protocol %d cycle count %d, expected >= 1", id, rp.Cycles)
		}

		var steps [4]domain.QuadrantStep
		for i, rs := range rp.Steps {
			steps[i] = domain.QuadrantStep{
				Quadrant:     domain.Quadrant(rs.Quadrant),
				PulseHz:      rs.PulseHz,
				IntensityPct: rs.IntensityPercent,
				DurationMin:  rs.DurationMin,
			}
			if err := steps[i].Validate(); err != nil {
				return fmt.Errorf("catalog validation: protocol %d: %w", id, err)
			}
		}
		c.protocols[id] = fourQuadrantEntry{steps: steps, cycles: rp.Cycles}
	}

	for id := domain.MinProtocolID; id <= domain.MaxProtocolID; id++ {
		if _, ok := c.protocols[id]; !ok {
			return fmt.Errorf("catalog validation: protocol %d has no entry", id)
		}
	}
	return nil
}

// ThreePhase returns the phase definitions for a condition. The returned
// array is a copy; callers cannot mutate catalog data.
func (c *Catalog) ThreePhase(condition domain.ConditionTag) ([3]domain.PhaseDefinition, error) {
	phases, ok := c.threePhase[condition]
	if !ok {
		return [3]domain.PhaseDefinition{}, fmt.Errorf("catalog lookup: %w: %q", domain.ErrUnknownCondition, condition)
	}
	return phases, nil
}

// FourQuadrant returns the quadrant steps and cycle count for a protocol id.
func (c *Catalog) FourQuadrant(protocolID int) ([4]domain.QuadrantStep, int, error) {
	entry, ok := c.protocols[protocolID]
	if !ok {
		return [4]domain.QuadrantStep{}, 0, fmt.Errorf("catalog lookup: %w: %d", domain.ErrUnknownProtocolID, protocolID)
	}
	return entry.steps, entry.cycles, nil
}

// Conditions lists every condition tag in the catalog, in the closed set's
// canonical order.
func (c *Catalog) Conditions() []domain.ConditionTag {
	return domain.AllConditionTags()
}

// ProtocolIDs lists every four-quadrant protocol id, ascending.
func (c *Catalog) ProtocolIDs() []int {
	ids := make([]int, 0, len(c.protocols))
	for id := range c.protocols {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Version identifies the loaded catalog artifact.
func (c *Catalog) Version() string {
	return c.version
}
