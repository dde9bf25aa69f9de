package integrations

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integrationColumns() []string {
	return []string{"id", "workspace_id", "name", "access_level", "allow_tools", "deny_tools", "headers", "env", "created_by", "created_at", "updated_at"}
}

func TestPostgresStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	integration := validIntegration()

	mock.ExpectQuery(`INSERT INTO integrations`).
		WithArgs(int64(1), "deploy-bot", 3, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

	err = store.Create(context.Background(), integration)
	require.NoError(t, err)
	assert.Equal(t, int64(17), integration.ID)
	assert.False(t, integration.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, workspace_id, name, access_level`).
			WithArgs(int64(1), int64(17)).
			WillReturnRows(sqlmock.NewRows(integrationColumns()).AddRow(
				int64(17), int64(1), "deploy-bot", 3,
				[]byte(`["deploy","status"]`), []byte(`["destroy"]`),
				[]byte(`{"Authorization":"Bearer sk-secret"}`), []byte(`{"API_KEY":"hunter2"}`),
				int64(1), now, now,
			))

		integration, err := store.Get(context.Background(), 1, 17)
		require.NoError(t, err)
		assert.Equal(t, "deploy-bot", integration.Name)
		assert.Equal(t, AccessReadWrite, integration.AccessLevel)
		assert.Equal(t, []string{"deploy", "status"}, integration.AllowTools)
		assert.Equal(t, "Bearer sk-secret", integration.Headers["Authorization"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, workspace_id, name, access_level`).
			WithArgs(int64(1), int64(99)).
			WillReturnRows(sqlmock.NewRows(integrationColumns()))

		_, err := store.Get(context.Background(), 1, 99)
		assert.ErrorIs(t, err, ErrIntegrationNotFound)
	})

	t.Run("stored out-of-range level clamps", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, workspace_id, name, access_level`).
			WithArgs(int64(1), int64(18)).
			WillReturnRows(sqlmock.NewRows(integrationColumns()).AddRow(
				int64(18), int64(1), "legacy", 42,
				[]byte(`[]`), []byte(`[]`), []byte(`{}`), []byte(`{}`),
				int64(1), now, now,
			))

		integration, err := store.Get(context.Background(), 1, 18)
		require.NoError(t, err)
		assert.Equal(t, AccessFull, integration.AccessLevel)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	integration := validIntegration()
	integration.ID = 99

	mock.ExpectExec(`UPDATE integrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Update(context.Background(), integration)
	assert.ErrorIs(t, err, ErrIntegrationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectExec(`DELETE FROM integrations`).
		WithArgs(int64(1), int64(17)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), 1, 17))

	mock.ExpectExec(`DELETE FROM integrations`).
		WithArgs(int64(1), int64(17)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Delete(context.Background(), 1, 17), ErrIntegrationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := validIntegration()
	require.NoError(t, store.Create(ctx, first))

	second := validIntegration()
	second.Name = "alerts"
	require.NoError(t, store.Create(ctx, second))

	other := validIntegration()
	other.WorkspaceID = 2
	require.NoError(t, store.Create(ctx, other))

	list, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alerts", list[0].Name) // sorted by name

	// Cross-workspace ids do not resolve
	_, err = store.Get(ctx, 2, first.ID)
	assert.ErrorIs(t, err, ErrIntegrationNotFound)

	first.AccessLevel = AccessFull
	require.NoError(t, store.Update(ctx, first))
	got, err := store.Get(ctx, 1, first.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessFull, got.AccessLevel)

	require.NoError(t, store.Delete(ctx, 1, first.ID))
	assert.ErrorIs(t, store.Delete(ctx, 1, first.ID), ErrIntegrationNotFound)
}
