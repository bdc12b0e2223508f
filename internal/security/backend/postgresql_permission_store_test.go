package backend

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/domain"
)

func newPermissionStoreUnderTest(t *testing.T) (*PostgreSQLPermissionStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newSQLMockDB(t)
	return NewPostgreSQLPermissionStore(db), mock
}

// expectTableExists queues the table registry lookup issued before any
// table-scoped statement.
func expectTableExists(mock sqlmock.Sqlmock, table string, exists bool) {
	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM tables").
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestPostgreSQLPermissionStore_GetUserAuthorizations(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored labels", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)

		mock.ExpectQuery("SELECT labels FROM user_authorizations").
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"labels"}).AddRow("{public,secret}"))

		auths, err := store.GetUserAuthorizations(ctx, "alice")

		assert.NoError(t, err)
		assert.True(t, domain.NewAuthorizations("public", "secret").Equal(auths))
	})

	t.Run("missing record is the empty set", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)

		mock.ExpectQuery("SELECT labels FROM user_authorizations").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		auths, err := store.GetUserAuthorizations(ctx, "ghost")

		assert.NoError(t, err)
		assert.Empty(t, auths)
	})
}

func TestPostgreSQLPermissionStore_ChangeAuthorizations(t *testing.T) {
	ctx := context.Background()
	store, mock := newPermissionStoreUnderTest(t)

	mock.ExpectExec("INSERT INTO user_authorizations").
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.ChangeAuthorizations(ctx, "alice", domain.NewAuthorizations("public"))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLPermissionStore_HasSystemPermission(t *testing.T) {
	ctx := context.Background()
	store, mock := newPermissionStoreUnderTest(t)

	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM system_permissions").
		WithArgs("alice", "create-table").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	held, err := store.HasSystemPermission(ctx, "alice", domain.SystemPermissionCreateTable)

	assert.NoError(t, err)
	assert.True(t, held)
}

func TestPostgreSQLPermissionStore_HasTablePermission(t *testing.T) {
	ctx := context.Background()

	t.Run("checks the table registry first", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)
		expectTableExists(mock, "t1", true)
		mock.ExpectQuery("SELECT EXISTS \\(\\s*SELECT 1 FROM table_permissions").
			WithArgs("alice", "t1", "read").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		held, err := store.HasTablePermission(ctx, "alice", "t1", domain.TablePermissionRead)

		assert.NoError(t, err)
		assert.True(t, held)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown table reports not found", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)
		expectTableExists(mock, "no-such-table", false)

		_, err := store.HasTablePermission(ctx, "alice", "no-such-table", domain.TablePermissionRead)

		assert.True(t, apperrors.Is(err, ErrTableNotFound))
	})

	t.Run("metadata table skips the registry lookup", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)
		mock.ExpectQuery("SELECT EXISTS \\(\\s*SELECT 1 FROM table_permissions").
			WithArgs("alice", domain.MetadataTableID, "write").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		held, err := store.HasTablePermission(ctx, "alice", domain.MetadataTableID, domain.TablePermissionWrite)

		assert.NoError(t, err)
		assert.False(t, held)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLPermissionStore_GrantRevokeSystemPermission(t *testing.T) {
	ctx := context.Background()
	store, mock := newPermissionStoreUnderTest(t)

	mock.ExpectExec("INSERT INTO system_permissions").
		WithArgs("alice", "grant").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM system_permissions").
		WithArgs("alice", "grant").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.GrantSystemPermission(ctx, "alice", domain.SystemPermissionGrant))
	require.NoError(t, store.RevokeSystemPermission(ctx, "alice", domain.SystemPermissionGrant))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLPermissionStore_GrantRevokeTablePermission(t *testing.T) {
	ctx := context.Background()
	store, mock := newPermissionStoreUnderTest(t)

	expectTableExists(mock, "t1", true)
	mock.ExpectExec("INSERT INTO table_permissions").
		WithArgs("alice", "t1", "read").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTableExists(mock, "t1", true)
	mock.ExpectExec("DELETE FROM table_permissions").
		WithArgs("alice", "t1", "read").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.GrantTablePermission(ctx, "alice", "t1", domain.TablePermissionRead))
	require.NoError(t, store.RevokeTablePermission(ctx, "alice", "t1", domain.TablePermissionRead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLPermissionStore_DropUser(t *testing.T) {
	ctx := context.Background()
	store, mock := newPermissionStoreUnderTest(t)

	mock.ExpectExec("DELETE FROM table_permissions WHERE username").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM system_permissions WHERE username").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM user_authorizations WHERE username").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.DropUser(ctx, "alice")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLPermissionStore_CleanTablePermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("removes every grant on the table", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)
		expectTableExists(mock, "t1", true)
		mock.ExpectExec("DELETE FROM table_permissions WHERE table_id").
			WithArgs("t1").
			WillReturnResult(sqlmock.NewResult(0, 3))

		err := store.CleanTablePermissions(ctx, "t1")

		assert.NoError(t, err)
	})

	t.Run("unknown table reports not found", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)
		expectTableExists(mock, "no-such-table", false)

		err := store.CleanTablePermissions(ctx, "no-such-table")

		assert.True(t, apperrors.Is(err, ErrTableNotFound))
	})
}

func TestPostgreSQLPermissionStore_InitUser(t *testing.T) {
	ctx := context.Background()
	store, mock := newPermissionStoreUnderTest(t)

	mock.ExpectExec("INSERT INTO user_authorizations").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.InitUser(ctx, "alice")

	assert.NoError(t, err)
}

func TestPostgreSQLPermissionStore_ClearTableCache(t *testing.T) {
	ctx := context.Background()

	t.Run("validates the table", func(t *testing.T) {
		store, mock := newPermissionStoreUnderTest(t)
		expectTableExists(mock, "t1", true)

		assert.NoError(t, store.ClearTableCache(ctx, "t1"))
	})

	t.Run("metadata is always valid", func(t *testing.T) {
		store, _ := newPermissionStoreUnderTest(t)

		assert.NoError(t, store.ClearTableCache(ctx, domain.MetadataTableID))
	})
}
