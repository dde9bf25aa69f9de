package integrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store persists integration descriptors
type Store interface {
	Create(ctx context.Context, integration *Integration) error
	Get(ctx context.Context, workspaceID, id int64) (*Integration, error)
	List(ctx context.Context, workspaceID int64) ([]*Integration, error)
	Update(ctx context.Context, integration *Integration) error
	Delete(ctx context.Context, workspaceID, id int64) error
}

// PostgresStore is the production Store over database/sql
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed integration store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the descriptor. The caller validates first; the store
// trusts its input.
func (s *PostgresStore) Create(ctx context.Context, integration *Integration) error {
	allow, deny, headers, env, err := marshalFields(integration)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO integrations (workspace_id, name, access_level, allow_tools, deny_tools, headers, env, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`,
		integration.WorkspaceID, integration.Name, int(integration.AccessLevel),
		allow, deny, headers, env, integration.CreatedBy, now,
	).Scan(&integration.ID)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}
	integration.CreatedAt = now
	integration.UpdatedAt = now
	return nil
}

// Get retrieves one integration scoped to the workspace. Scoping by
// workspace id in the query keeps cross-tenant ids unresolvable.
func (s *PostgresStore) Get(ctx context.Context, workspaceID, id int64) (*Integration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, access_level, allow_tools, deny_tools, headers, env, created_by, created_at, updated_at
		FROM integrations
		WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	return scanIntegration(row)
}

// List retrieves all integrations in a workspace
func (s *PostgresStore) List(ctx context.Context, workspaceID int64) ([]*Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, access_level, allow_tools, deny_tools, headers, env, created_by, created_at, updated_at
		FROM integrations
		WHERE workspace_id = $1
		ORDER BY name`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []*Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, integration)
	}
	return integrations, rows.Err()
}

// Update rewrites the mutable fields
func (s *PostgresStore) Update(ctx context.Context, integration *Integration) error {
	allow, deny, headers, env, err := marshalFields(integration)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE integrations
		SET name = $1, access_level = $2, allow_tools = $3, deny_tools = $4, headers = $5, env = $6, updated_at = NOW()
		WHERE workspace_id = $7 AND id = $8`,
		integration.Name, int(integration.AccessLevel), allow, deny, headers, env,
		integration.WorkspaceID, integration.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrIntegrationNotFound
	}
	return nil
}

// Delete removes an integration
func (s *PostgresStore) Delete(ctx context.Context, workspaceID, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM integrations WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrIntegrationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntegration(row rowScanner) (*Integration, error) {
	var (
		integration             Integration
		level                   int
		allow, deny, headers, env []byte
	)
	err := row.Scan(
		&integration.ID, &integration.WorkspaceID, &integration.Name, &level,
		&allow, &deny, &headers, &env,
		&integration.CreatedBy, &integration.CreatedAt, &integration.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan integration: %w", err)
	}

	integration.AccessLevel = Clamp(level)
	if err := unmarshalInto(allow, &integration.AllowTools); err != nil {
		return nil, err
	}
	if err := unmarshalInto(deny, &integration.DenyTools); err != nil {
		return nil, err
	}
	if err := unmarshalInto(headers, &integration.Headers); err != nil {
		return nil, err
	}
	if err := unmarshalInto(env, &integration.Env); err != nil {
		return nil, err
	}
	return &integration, nil
}

func marshalFields(integration *Integration) (allow, deny, headers, env []byte, err error) {
	if allow, err = json.Marshal(integration.AllowTools); err != nil {
		return
	}
	if deny, err = json.Marshal(integration.DenyTools); err != nil {
		return
	}
	if headers, err = json.Marshal(integration.Headers); err != nil {
		return
	}
	env, err = json.Marshal(integration.Env)
	return
}

func unmarshalInto(raw []byte, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode integration field: %w", err)
	}
	return nil
}
