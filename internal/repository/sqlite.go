package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pbm-protocol-server/internal/domain"
)

// SQLitePlanStore persists plan history in a local SQLite file, for
// single-clinic installs without a Postgres server. It implements
// domain.PlanStore.
type SQLitePlanStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
}

// NewSQLitePlanStore opens (and if needed creates) the database file and
// schema.
func NewSQLitePlanStore(dbPath string, logger *logrus.Logger) (*SQLitePlanStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createPlanSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLitePlanStore{
		db:     db,
		dbPath: dbPath,
		log:    logger,
	}, nil
}

// createPlanSchema creates the plan history table and indexes.
func createPlanSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS protocol_plans (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		device_family TEXT NOT NULL,
		body TEXT NOT NULL,
		label TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(client_id, label)
	);

	CREATE INDEX IF NOT EXISTS idx_plans_client ON protocol_plans(client_id, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// isSQLiteUniqueViolation matches the modernc driver's constraint error.
// The driver reports SQLITE_CONSTRAINT_UNIQUE (2067) in the error text.
func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListByClient returns the client's plans ordered by creation time ascending.
func (s *SQLitePlanStore) ListByClient(ctx context.Context, clientID string) ([]*domain.ProtocolPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, device_family, body, label, created_at
		FROM protocol_plans
		WHERE client_id = ?
		ORDER BY created_at ASC, label ASC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing plans for client %s: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	plans := []*domain.ProtocolPlan{}
	for rows.Next() {
		plan, err := scanSQLitePlan(rows)
		if err != nil {
			return nil, fmt.Errorf("listing plans for client %s: %w", clientID, err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// Create inserts a new labeled plan; the UNIQUE(client_id, label) constraint
// rejects label collisions atomically with the insert.
func (s *SQLitePlanStore) Create(ctx context.Context, clientID string, body *domain.PlanBody, label string) (*domain.ProtocolPlan, error) {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO protocol_plans (id, client_id, device_family, body, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, plan.ID, plan.ClientID, string(plan.Body.Family), string(bodyJSON), plan.Label, plan.CreatedAt)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, fmt.Errorf("creating plan %q for client %s: %w", label, clientID, domain.ErrDuplicateLabel)
		}
		s.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"label":     label,
			"error":     err,
		}).Error("Failed to create plan")
		return nil, fmt.Errorf("creating plan for client %s: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}

	return plan, nil
}

// UpdateLabel rewrites a plan's label and returns the updated record.
func (s *SQLitePlanStore) UpdateLabel(ctx context.Context, planID string, newLabel string) (*domain.ProtocolPlan, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE protocol_plans SET label = ? WHERE id = ?`, newLabel, planID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, fmt.Errorf("updating label of plan %s to %q: %w", planID, newLabel, domain.ErrDuplicateLabel)
		}
		return nil, fmt.Errorf("updating label of plan %s: %w: %w", planID, domain.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating label of plan %s: %w: %w", planID, domain.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("updating label of plan %s: %w", planID, domain.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, device_family, body, label, created_at
		FROM protocol_plans WHERE id = ?
	`, planID)
	plan, err := scanSQLitePlan(row)
	if err != nil {
		return nil, fmt.Errorf("updating label of plan %s: %w", planID, err)
	}
	return plan, nil
}

// Delete removes a plan; an absent plan yields ErrNotFound.
func (s *SQLitePlanStore) Delete(ctx context.Context, planID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM protocol_plans WHERE id = ?`, planID)
	if err != nil {
		return fmt.Errorf("deleting plan %s: %w: %w", planID, domain.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting plan %s: %w: %w", planID, domain.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting plan %s: %w", planID, domain.ErrNotFound)
	}
	return nil
}

// ClientIDs returns the distinct client ids present in the store.
func (s *SQLitePlanStore) ClientIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT client_id FROM protocol_plans ORDER BY client_id`)
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

// Close closes the store and releases resources.
func (s *SQLitePlanStore) Close() error {
	return s.db.Close()
}

// sqliteScanner covers sql.Row and sql.Rows.
type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlan(row sqliteScanner) (*domain.ProtocolPlan, error) {
	var plan domain.ProtocolPlan
	var family, bodyJSON string

	err := row.Scan(&plan.ID, &plan.ClientID, &family, &bodyJSON, &plan.Label, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if err := json.Unmarshal([]byte(bodyJSON), &plan.Body); err != nil {
		return nil, fmt.Errorf("decoding plan body: %w", err)
	}
	if plan.Body.Family == "" {
		plan.Body.Family = domain.DeviceFamily(family)
	}
	return &plan, nil
}
