package api

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvalRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "workspace_id", "title", "description", "requested_by", "status",
		"decided_by", "decided_at", "decision_note", "created_at", "updated_at",
	})
}

func TestPostgresApprovalStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresApprovalStore(db)

	now := time.Now()
	mock.ExpectQuery("SELECT id, workspace_id, title").
		WithArgs(int64(7), int64(42)).
		WillReturnRows(approvalRows().AddRow(
			42, 7, "ship it", "deploy v2", 3, "pending", nil, nil, nil, now, now,
		))

	approval, err := store.GetApproval(context.Background(), 7, 42)
	require.NoError(t, err)
	assert.Equal(t, ApprovalPending, approval.Status)
	assert.Equal(t, "deploy v2", approval.Description)
	assert.Nil(t, approval.DecidedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApprovalStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresApprovalStore(db)

	mock.ExpectQuery("SELECT id, workspace_id, title").
		WithArgs(int64(7), int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err = store.GetApproval(context.Background(), 7, 42)
	assert.True(t, errors.Is(err, ErrApprovalNotFound))
}

func TestPostgresApprovalStoreDecideAlreadyDecided(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresApprovalStore(db)

	now := time.Now()
	decidedBy := int64(2)

	// Guarded update touches no rows, then the follow-up read finds the
	// row, so the answer is already-decided rather than not-found
	mock.ExpectExec("UPDATE approvals").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, workspace_id, title").
		WithArgs(int64(7), int64(42)).
		WillReturnRows(approvalRows().AddRow(
			42, 7, "ship it", nil, 3, "approved", decidedBy, now, "lgtm", now, now,
		))

	_, err = store.DecideApproval(context.Background(), 7, 42, ApprovalRejected, 1, "")
	assert.True(t, errors.Is(err, ErrAlreadyDecided))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApprovalStoreEscalationConfigDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresApprovalStore(db)

	mock.ExpectQuery("SELECT workspace_id, auto_escalate").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	cfg, err := store.GetEscalationConfig(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, DefaultEscalationConfig(7), cfg)
}

func TestPostgresApprovalStoreEscalationConfigUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresApprovalStore(db)

	mock.ExpectExec("INSERT INTO escalation_configs").
		WithArgs(int64(7), true, 12, "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cfg := &EscalationConfig{WorkspaceID: 7, AutoEscalate: true, EscalateAfterHours: 12, NotifyRole: "admin"}
	require.NoError(t, store.UpdateEscalationConfig(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}
