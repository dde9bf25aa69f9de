package api

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// ApprovalStatus is the decision state of an approval request
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is a pending decision raised inside a workspace. The pipeline
// treats it as an opaque record; only who may see and decide it matters
// here.
type Approval struct {
	ID           int64          `json:"id"`
	WorkspaceID  int64          `json:"workspace_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	RequestedBy  int64          `json:"requested_by"`
	Status       ApprovalStatus `json:"status"`
	DecidedBy    *int64         `json:"decided_by,omitempty"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
	DecisionNote string         `json:"decision_note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// EscalationConfig controls when undecided approvals escalate and to whom
type EscalationConfig struct {
	WorkspaceID        int64      `json:"workspace_id"`
	AutoEscalate       bool       `json:"auto_escalate"`
	EscalateAfterHours int        `json:"escalate_after_hours"`
	NotifyRole         authz.Role `json:"notify_role"`
}

// DefaultEscalationConfig is the per-workspace config before an owner has
// set one explicitly.
func DefaultEscalationConfig(workspaceID int64) *EscalationConfig {
	return &EscalationConfig{
		WorkspaceID:        workspaceID,
		AutoEscalate:       true,
		EscalateAfterHours: 48,
		NotifyRole:         authz.RoleAdmin,
	}
}

// Validate checks an escalation config at the boundary
func (c *EscalationConfig) Validate() error {
	if c.EscalateAfterHours <= 0 {
		return authz.NewValidationError("escalate_after_hours", "must be positive")
	}
	if !authz.ValidRole(c.NotifyRole) {
		return authz.NewValidationError("notify_role", "unknown role")
	}
	return nil
}

var (
	// ErrApprovalNotFound means no approval row exists in the workspace
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrAlreadyDecided means the approval left the pending state before
	// this decision arrived
	ErrAlreadyDecided = errors.New("approval already decided")
)

// ApprovalStore persists approvals and escalation configs. All reads and
// writes are workspace-scoped.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, approval *Approval) error
	ListApprovals(ctx context.Context, workspaceID int64, status ApprovalStatus) ([]*Approval, error)
	GetApproval(ctx context.Context, workspaceID, id int64) (*Approval, error)

	// DecideApproval moves a pending approval to status. Deciding a
	// non-pending approval returns ErrAlreadyDecided.
	DecideApproval(ctx context.Context, workspaceID, id int64, status ApprovalStatus, decidedBy int64, note string) (*Approval, error)

	GetEscalationConfig(ctx context.Context, workspaceID int64) (*EscalationConfig, error)
	UpdateEscalationConfig(ctx context.Context, cfg *EscalationConfig) error
}

// PostgresApprovalStore implements ApprovalStore over database/sql
type PostgresApprovalStore struct {
	db *sql.DB
}

// NewPostgresApprovalStore creates a Postgres-backed approval store
func NewPostgresApprovalStore(db *sql.DB) *PostgresApprovalStore {
	return &PostgresApprovalStore{db: db}
}

func (s *PostgresApprovalStore) CreateApproval(ctx context.Context, approval *Approval) error {
	now := time.Now()
	query := `
		INSERT INTO approvals (workspace_id, title, description, requested_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`
	approval.Status = ApprovalPending
	approval.CreatedAt = now
	approval.UpdatedAt = now
	return s.db.QueryRowContext(ctx, query,
		approval.WorkspaceID, approval.Title, approval.Description,
		approval.RequestedBy, approval.Status, now,
	).Scan(&approval.ID)
}

func (s *PostgresApprovalStore) ListApprovals(ctx context.Context, workspaceID int64, status ApprovalStatus) ([]*Approval, error) {
	query := `
		SELECT id, workspace_id, title, description, requested_by, status,
		       decided_by, decided_at, decision_note, created_at, updated_at
		FROM approvals
		WHERE workspace_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, workspaceID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []*Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
	}
	return approvals, rows.Err()
}

func (s *PostgresApprovalStore) GetApproval(ctx context.Context, workspaceID, id int64) (*Approval, error) {
	query := `
		SELECT id, workspace_id, title, description, requested_by, status,
		       decided_by, decided_at, decision_note, created_at, updated_at
		FROM approvals
		WHERE workspace_id = $1 AND id = $2`
	approval, err := scanApproval(s.db.QueryRowContext(ctx, query, workspaceID, id))
	if err == sql.ErrNoRows {
		return nil, ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}
	return approval, nil
}

func (s *PostgresApprovalStore) DecideApproval(ctx context.Context, workspaceID, id int64, status ApprovalStatus, decidedBy int64, note string) (*Approval, error) {
	// Guarding on status = 'pending' makes the decision first-writer-wins
	// under concurrent decisions.
	query := `
		UPDATE approvals
		SET status = $1, decided_by = $2, decided_at = $3, decision_note = $4, updated_at = $3
		WHERE workspace_id = $5 AND id = $6 AND status = 'pending'`
	result, err := s.db.ExecContext(ctx, query, status, decidedBy, time.Now(), note, workspaceID, id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Distinguish missing from already-decided for the caller
		if _, err := s.GetApproval(ctx, workspaceID, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyDecided
	}
	return s.GetApproval(ctx, workspaceID, id)
}

func (s *PostgresApprovalStore) GetEscalationConfig(ctx context.Context, workspaceID int64) (*EscalationConfig, error) {
	query := `
		SELECT workspace_id, auto_escalate, escalate_after_hours, notify_role
		FROM escalation_configs
		WHERE workspace_id = $1`
	cfg := &EscalationConfig{}
	err := s.db.QueryRowContext(ctx, query, workspaceID).Scan(
		&cfg.WorkspaceID, &cfg.AutoEscalate, &cfg.EscalateAfterHours, &cfg.NotifyRole,
	)
	if err == sql.ErrNoRows {
		return DefaultEscalationConfig(workspaceID), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresApprovalStore) UpdateEscalationConfig(ctx context.Context, cfg *EscalationConfig) error {
	query := `
		INSERT INTO escalation_configs (workspace_id, auto_escalate, escalate_after_hours, notify_role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace_id)
		DO UPDATE SET auto_escalate = $2, escalate_after_hours = $3, notify_role = $4`
	_, err := s.db.ExecContext(ctx, query, cfg.WorkspaceID, cfg.AutoEscalate, cfg.EscalateAfterHours, cfg.NotifyRole)
	return err
}

type approvalScanner interface {
	Scan(dest ...interface{}) error
}

func scanApproval(row approvalScanner) (*Approval, error) {
	approval := &Approval{}
	var description, note sql.NullString
	var decidedBy sql.NullInt64
	var decidedAt sql.NullTime
	err := row.Scan(
		&approval.ID, &approval.WorkspaceID, &approval.Title, &description,
		&approval.RequestedBy, &approval.Status, &decidedBy,
		&decidedAt, &note, &approval.CreatedAt, &approval.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	approval.Description = description.String
	approval.DecisionNote = note.String
	if decidedBy.Valid {
		approval.DecidedBy = &decidedBy.Int64
	}
	if decidedAt.Valid {
		approval.DecidedAt = &decidedAt.Time
	}
	return approval, nil
}

// MemoryApprovalStore is an in-memory ApprovalStore for tests and local
// development
type MemoryApprovalStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*Approval
	configs map[int64]*EscalationConfig
}

// NewMemoryApprovalStore creates an empty in-memory approval store
func NewMemoryApprovalStore() *MemoryApprovalStore {
	return &MemoryApprovalStore{
		byID:    make(map[int64]*Approval),
		configs: make(map[int64]*EscalationConfig),
	}
}

func (s *MemoryApprovalStore) CreateApproval(ctx context.Context, approval *Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	approval.ID = s.nextID
	approval.Status = ApprovalPending
	now := time.Now()
	approval.CreatedAt = now
	approval.UpdatedAt = now

	copied := *approval
	s.byID[copied.ID] = &copied
	return nil
}

func (s *MemoryApprovalStore) ListApprovals(ctx context.Context, workspaceID int64, status ApprovalStatus) ([]*Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	approvals := make([]*Approval, 0)
	for _, approval := range s.byID {
		if approval.WorkspaceID != workspaceID {
			continue
		}
		if status != "" && approval.Status != status {
			continue
		}
		copied := *approval
		approvals = append(approvals, &copied)
	}
	sort.Slice(approvals, func(i, j int) bool { return approvals[i].ID < approvals[j].ID })
	return approvals, nil
}

func (s *MemoryApprovalStore) GetApproval(ctx context.Context, workspaceID, id int64) (*Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	approval, ok := s.byID[id]
	if !ok || approval.WorkspaceID != workspaceID {
		return nil, ErrApprovalNotFound
	}
	copied := *approval
	return &copied, nil
}

func (s *MemoryApprovalStore) DecideApproval(ctx context.Context, workspaceID, id int64, status ApprovalStatus, decidedBy int64, note string) (*Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approval, ok := s.byID[id]
	if !ok || approval.WorkspaceID != workspaceID {
		return nil, ErrApprovalNotFound
	}
	if approval.Status != ApprovalPending {
		return nil, ErrAlreadyDecided
	}

	now := time.Now()
	approval.Status = status
	approval.DecidedBy = &decidedBy
	approval.DecidedAt = &now
	approval.DecisionNote = note
	approval.UpdatedAt = now

	copied := *approval
	return &copied, nil
}

func (s *MemoryApprovalStore) GetEscalationConfig(ctx context.Context, workspaceID int64) (*EscalationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.configs[workspaceID]; ok {
		copied := *cfg
		return &copied, nil
	}
	return DefaultEscalationConfig(workspaceID), nil
}

func (s *MemoryApprovalStore) UpdateEscalationConfig(ctx context.Context, cfg *EscalationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *cfg
	s.configs[cfg.WorkspaceID] = &copied
	return nil
}
