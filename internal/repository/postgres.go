// Package repository provides the concrete plan history stores: Postgres for
// clinic deployments, SQLite for embedded single-node installs, an in-memory
// store for tests, and a circuit-breaker decorator usable over any of them.
// All of them enforce (client_id, label) uniqueness and translate driver
// errors into the domain taxonomy.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pbm-protocol-server/internal/domain"
)

// pgUniqueViolation is SQLSTATE 23505.
const pgUniqueViolation = "23505"

// isPgUniqueViolation matches the unique-index rejection anywhere in the
// error chain.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgresPlanStore persists plan history in Postgres. It implements
// domain.PlanStore; the plans_client_label unique index backs the
// ErrDuplicateLabel contract.
type PostgresPlanStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresPlanStore creates a new Postgres-backed plan store.
func NewPostgresPlanStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresPlanStore {
	return &PostgresPlanStore{
		db:  db,
		log: logger,
	}
}

// ListByClient returns the client's plans ordered by creation time ascending.
func (r *PostgresPlanStore) ListByClient(ctx context.Context, clientID string) ([]*domain.ProtocolPlan, error) {
	query := `
		SELECT id, client_id, device_family, body, label, created_at
		FROM protocol_plans
		WHERE client_id = $1
		ORDER BY created_at ASC, label ASC`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"error":     err,
		}).Error("Failed to list plans")
		return nil, fmt.Errorf("listing plans for client %s: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	plans := []*domain.ProtocolPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("listing plans for client %s: %w", clientID, err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing plans for client %s: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}
	return plans, nil
}

// Create inserts a new labeled plan. The unique index on (client_id, label)
// performs the atomic uniqueness check; there is no separate label
// reservation step that could orphan a label.
func (r *PostgresPlanStore) Create(ctx context.Context, clientID string, body *domain.PlanBody, label string) (*domain.ProtocolPlan, error) {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("creating plan: encoding body: %w", err)
	}

	plan := &domain.ProtocolPlan{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Body:      *body,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO protocol_plans (id, client_id, device_family, body, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		plan.ID, plan.ClientID, string(plan.Body.Family), bodyJSON, plan.Label, plan.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("creating plan %q for client %s: %w", label, clientID, domain.ErrDuplicateLabel)
		}
		r.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"label":     label,
			"error":     err,
		}).Error("Failed to create plan")
		return nil, fmt.Errorf("creating plan for client %s: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}

	return plan, nil
}

// UpdateLabel rewrites a plan's label and returns the updated record.
func (r *PostgresPlanStore) UpdateLabel(ctx context.Context, planID string, newLabel string) (*domain.ProtocolPlan, error) {
	query := `
		UPDATE protocol_plans
		SET label = $2
		WHERE id = $1
		RETURNING id, client_id, device_family, body, label, created_at`

	row := r.db.QueryRow(ctx, query, planID, newLabel)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("updating label of plan %s: %w", planID, domain.ErrNotFound)
		}
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("updating label of plan %s to %q: %w", planID, newLabel, domain.ErrDuplicateLabel)
		}
		r.log.WithFields(logrus.Fields{
			"plan_id":   planID,
			"new_label": newLabel,
			"error":     err,
		}).Error("Failed to update plan label")
		return nil, fmt.Errorf("updating label of plan %s: %w: %w", planID, domain.ErrStoreUnavailable, err)
	}
	return plan, nil
}

// Delete removes a plan; an absent plan yields ErrNotFound.
func (r *PostgresPlanStore) Delete(ctx context.Context, planID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM protocol_plans WHERE id = $1`, planID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"plan_id": planID,
			"error":   err,
		}).Error("Failed to delete plan")
		return fmt.Errorf("deleting plan %s: %w: %w", planID, domain.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting plan %s: %w", planID, domain.ErrNotFound)
	}
	return nil
}

// ClientIDs returns the distinct client ids present in the store.
func (r *PostgresPlanStore) ClientIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT client_id FROM protocol_plans ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("listing client ids: %w: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("listing client ids: %w: %w", domain.ErrStoreUnavailable, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.ProtocolPlan, error) {
	var plan domain.ProtocolPlan
	var family string
	var bodyJSON []byte

	if err := row.Scan(&plan.ID, &plan.ClientID, &family, &bodyJSON, &plan.Label, &plan.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bodyJSON, &plan.Body); err != nil {
		return nil, fmt.Errorf("decoding plan body: %w", err)
	}
	// The column is denormalized for querying; the body stays authoritative.
	if plan.Body.Family == "" {
		plan.Body.Family = domain.DeviceFamily(family)
	}
	return &plan, nil
}
