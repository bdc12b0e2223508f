package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/domain"
)

func TestMemoryIdentityStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create authenticate and drop", func(t *testing.T) {
		store := NewMemoryIdentityStore()

		require.NoError(t, store.CreateUser(ctx, "alice", []byte("secret")))

		ok, err := store.Authenticate(ctx, "alice", []byte("secret"), "inst")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Authenticate(ctx, "alice", []byte("wrong"), "inst")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.DropUser(ctx, "alice"))

		exists, err := store.UserExists(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		store := NewMemoryIdentityStore()
		require.NoError(t, store.CreateUser(ctx, "alice", []byte("secret")))

		err := store.CreateUser(ctx, "alice", []byte("other"))

		assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	})

	t.Run("password change invalidates the old secret", func(t *testing.T) {
		store := NewMemoryIdentityStore()
		require.NoError(t, store.CreateUser(ctx, "alice", []byte("old")))

		require.NoError(t, store.ChangePassword(ctx, "alice", []byte("new")))

		ok, err := store.Authenticate(ctx, "alice", []byte("old"), "inst")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing users report not found", func(t *testing.T) {
		store := NewMemoryIdentityStore()

		assert.True(t, apperrors.Is(store.DropUser(ctx, "ghost"), ErrUserNotFound))
		assert.True(t, apperrors.Is(store.ChangePassword(ctx, "ghost", []byte("x")), ErrUserNotFound))
	})

	t.Run("list users is sorted", func(t *testing.T) {
		store := NewMemoryIdentityStore()
		require.NoError(t, store.CreateUser(ctx, "bob", []byte("s")))
		require.NoError(t, store.CreateUser(ctx, "alice", []byte("s")))

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, users)
	})
}

func TestMemoryPermissionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("system permission round trip", func(t *testing.T) {
		store := NewMemoryPermissionStore()

		require.NoError(t, store.GrantSystemPermission(ctx, "alice", domain.SystemPermissionCreateTable))

		held, err := store.HasSystemPermission(ctx, "alice", domain.SystemPermissionCreateTable)
		require.NoError(t, err)
		assert.True(t, held)

		require.NoError(t, store.RevokeSystemPermission(ctx, "alice", domain.SystemPermissionCreateTable))

		held, err = store.HasSystemPermission(ctx, "alice", domain.SystemPermissionCreateTable)
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("table permissions require a registered table", func(t *testing.T) {
		store := NewMemoryPermissionStore()

		err := store.GrantTablePermission(ctx, "alice", "t1", domain.TablePermissionRead)
		assert.True(t, apperrors.Is(err, ErrTableNotFound))

		store.AddTable("t1")
		require.NoError(t, store.GrantTablePermission(ctx, "alice", "t1", domain.TablePermissionRead))

		held, err := store.HasTablePermission(ctx, "alice", "t1", domain.TablePermissionRead)
		require.NoError(t, err)
		assert.True(t, held)
	})

	t.Run("the metadata table is always registered", func(t *testing.T) {
		store := NewMemoryPermissionStore()

		held, err := store.HasTablePermission(ctx, "alice", domain.MetadataTableID, domain.TablePermissionRead)
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("clean table permissions strips every user", func(t *testing.T) {
		store := NewMemoryPermissionStore()
		store.AddTable("t1")
		require.NoError(t, store.GrantTablePermission(ctx, "alice", "t1", domain.TablePermissionRead))
		require.NoError(t, store.GrantTablePermission(ctx, "bob", "t1", domain.TablePermissionWrite))

		require.NoError(t, store.CleanTablePermissions(ctx, "t1"))

		for user, perm := range map[string]domain.TablePermission{
			"alice": domain.TablePermissionRead,
			"bob":   domain.TablePermissionWrite,
		} {
			held, err := store.HasTablePermission(ctx, user, "t1", perm)
			require.NoError(t, err)
			assert.False(t, held)
		}
	})

	t.Run("drop user removes all records", func(t *testing.T) {
		store := NewMemoryPermissionStore()
		store.AddTable("t1")
		require.NoError(t, store.ChangeAuthorizations(ctx, "alice", domain.NewAuthorizations("public")))
		require.NoError(t, store.GrantSystemPermission(ctx, "alice", domain.SystemPermissionGrant))
		require.NoError(t, store.GrantTablePermission(ctx, "alice", "t1", domain.TablePermissionRead))

		require.NoError(t, store.DropUser(ctx, "alice"))

		auths, err := store.GetUserAuthorizations(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, auths)

		held, err := store.HasSystemPermission(ctx, "alice", domain.SystemPermissionGrant)
		require.NoError(t, err)
		assert.False(t, held)
	})
}
