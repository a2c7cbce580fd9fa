package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pbm-protocol-server/internal/domain"
)

// deriveRequest selects a plan to derive: a condition tag for the
// three-phase helmet or a protocol id for the four-quadrant helmet.
type deriveRequest struct {
	DeviceFamily string `json:"device_family" binding:"required"`
	ConditionTag string `json:"condition_tag,omitempty"`
	ProtocolID   *int   `json:"protocol_id,omitempty"`
}

// selector resolves the request into the deriver's selector type.
func (r *deriveRequest) selector() (domain.DeviceFamily, domain.Selector, error) {
	family := domain.DeviceFamily(r.DeviceFamily)
	switch family {
	case domain.THREE_PHASE:
		if r.ConditionTag == "" {
			return family, nil, domain.NewValidationError("condition_tag",
				"condition_tag is required for THREE_PHASE", r.ConditionTag)
		}
		return family, domain.ConditionTag(r.ConditionTag), nil
	case domain.FOUR_QUADRANT:
		if r.ProtocolID == nil {
			return family, nil, domain.NewValidationError("protocol_id",
				"protocol_id is required for FOUR_QUADRANT", nil)
		}
		return family, *r.ProtocolID, nil
	default:
		return family, nil, domain.NewValidationError("device_family",
			"device_family must be THREE_PHASE or FOUR_QUADRANT", r.DeviceFamily)
	}
}

// planResponse pairs a plan with its device-agnostic summary.
type planResponse struct {
	Plan    *domain.ProtocolPlan `json:"plan"`
	Summary *domain.PlanSummary  `json:"summary"`
}

// handleDerive previews a derivation without persisting or labeling it.
func (s *Server) handleDerive(c *gin.Context) {
	var req deriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", err.Error(), nil))
		return
	}

	family, sel, err := req.selector()
	if err != nil {
		s.respondError(c, err)
		return
	}

	body, err := s.deriver.Derive(family, sel)
	if err != nil {
		s.respondError(c, err)
		return
	}
	summary, err := s.adapter.Normalize(body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"body":    body,
		"summary": summary,
	})
}

// handleCreatePlan derives a plan for the client, assigns the next "Map N"
// label and persists it.
func (s *Server) handleCreatePlan(c *gin.Context) {
	clientID := c.Param("clientId")

	var req deriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewValidationError("body", err.Error(), nil))
		return
	}

	family, sel, err := req.selector()
	if err != nil {
		s.respondError(c, err)
		return
	}

	body, err := s.deriver.Derive(family, sel)
	if err != nil {
		s.respondError(c, err)
		return
	}

	plan, err := s.versioner.CreateAndLabel(c.Request.Context(), clientID, body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	summary, err := s.adapter.Normalize(&plan.Body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, planResponse{Plan: plan, Summary: summary})
}

// handleListPlans returns the client's plan history, oldest first.
func (s *Server) handleListPlans(c *gin.Context) {
	clientID := c.Param("clientId")

	plans, err := s.store.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id": clientID,
		"count":     len(plans),
		"plans":     plans,
	})
}

// handleRelabel repairs the client's label sequence.
func (s *Server) handleRelabel(c *gin.Context) {
	clientID := c.Param("clientId")

	updated, err := s.versioner.RelabelClient(c.Request.Context(), clientID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id": clientID,
		"updated":   updated,
	})
}

// handleDeletePlan removes a plan. Deleting an absent plan succeeds; labels
// of the remaining plans are untouched until an explicit relabel.
func (s *Server) handleDeletePlan(c *gin.Context) {
	planID := c.Param("planId")

	if err := s.versioner.DeletePlan(c.Request.Context(), planID); err != nil {
		s.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// conditionEntry is one row of the condition catalog listing.
type conditionEntry struct {
	ConditionTag domain.ConditionTag      `json:"condition_tag"`
	FrequencyHz  float64                  `json:"frequency_hz"`
	Phases       []domain.PhaseDefinition `json:"phases"`
}

// handleListConditions lists the condition catalog for selection UIs.
func (s *Server) handleListConditions(c *gin.Context) {
	tags := s.catalog.Conditions()
	entries := make([]conditionEntry, 0, len(tags))
	for _, tag := range tags {
		phases, err := s.catalog.ThreePhase(tag)
		if err != nil {
			s.respondError(c, err)
			return
		}
		entries = append(entries, conditionEntry{
			ConditionTag: tag,
			FrequencyHz:  phases[0].FrequencyHz,
			Phases:       phases[:],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"catalog_version": s.catalog.Version(),
		"conditions":      entries,
	})
}

// protocolEntry is one row of the protocol catalog listing.
type protocolEntry struct {
	ProtocolID int                   `json:"protocol_id"`
	Cycles     int                   `json:"cycles"`
	Steps      []domain.QuadrantStep `json:"steps"`
}

// handleListProtocols lists the four-quadrant protocol catalog.
func (s *Server) handleListProtocols(c *gin.Context) {
	ids := s.catalog.ProtocolIDs()
	entries := make([]protocolEntry, 0, len(ids))
	for _, id := range ids {
		steps, cycles, err := s.catalog.FourQuadrant(id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		entries = append(entries, protocolEntry{
			ProtocolID: id,
			Cycles:     cycles,
			Steps:      steps[:],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"catalog_version": s.catalog.Version(),
		"protocols":       entries,
	})
}
