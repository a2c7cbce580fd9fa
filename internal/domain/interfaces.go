package domain

import (
	"context"
)

// Catalog is the authoritative, immutable mapping from selectors to plan
// parameters. Loaded once at process start; lookups never block.
type Catalog interface {
	// ThreePhase returns the three ordered phase definitions for a
	// condition, or ErrUnknownCondition.
	ThreePhase(condition ConditionTag) ([3]PhaseDefinition, error)
	// FourQuadrant returns the four quadrant steps and cycle count for a
	// protocol id, or ErrUnknownProtocolID.
	FourQuadrant(protocolID int) ([4]QuadrantStep, int, error)
	// Conditions lists every condition tag with a catalog entry.
	Conditions() []ConditionTag
	// ProtocolIDs lists every four-quadrant protocol id with a catalog entry.
	ProtocolIDs() []int
	// Version identifies the loaded catalog artifact.
	Version() string
}

// Selector is the per-family plan key: a ConditionTag for THREE_PHASE or a
// protocol id (int) for FOUR_QUADRANT.
type Selector interface{}

// Deriver turns a device family and selector into a validated plan body.
// Derivation is pure and deterministic; identical inputs produce
// structurally identical bodies.
type Deriver interface {
	Derive(family DeviceFamily, selector Selector) (*PlanBody, error)
}

// DeviceAdapter presents a uniform view over both plan shapes so callers
// never branch on device family.
type DeviceAdapter interface {
	Normalize(body *PlanBody) (*PlanSummary, error)
}

// Versioner assigns sequential per-client labels to derived plans and
// repairs label drift.
type Versioner interface {
	CreateAndLabel(ctx context.Context, clientID string, body *PlanBody) (*ProtocolPlan, error)
	RelabelClient(ctx context.Context, clientID string) (int, error)
	DeletePlan(ctx context.Context, planID string) error
}

// PlanStore is the persistence contract for per-client plan history.
// Implementations must enforce uniqueness of (clientID, label) in Create and
// report violations as ErrDuplicateLabel; connectivity failures are wrapped
// as ErrStoreUnavailable.
type PlanStore interface {
	// ListByClient returns the client's plans ordered by creation time
	// ascending; an empty slice if the client has none.
	ListByClient(ctx context.Context, clientID string) ([]*ProtocolPlan, error)
	// Create persists a new labeled plan and returns the stored record.
	Create(ctx context.Context, clientID string, body *PlanBody, label string) (*ProtocolPlan, error)
	// UpdateLabel rewrites the label of an existing plan.
	UpdateLabel(ctx context.Context, planID string, newLabel string) (*ProtocolPlan, error)
	// Delete removes a plan. Deleting an absent plan returns ErrNotFound;
	// the versioning service treats that as success.
	Delete(ctx context.Context, planID string) error
	// ClientIDs returns the distinct client ids present in the store,
	// used by the relabel maintenance tool.
	ClientIDs(ctx context.Context) ([]string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetStoreConfig() *StoreConfig
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
