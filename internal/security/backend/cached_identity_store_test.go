package backend

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cacheTTL = 0 // no expiry during tests

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newCachedIdentityStore(t *testing.T) (*CachedIdentityStore, *MemoryIdentityStore) {
	t.Helper()

	next := NewMemoryIdentityStore()
	store := NewCachedIdentityStore(next, newTestRedisClient(t), cacheTTL)
	return store, next
}

func TestCachedIdentityStore_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("positive answers are served from cache", func(t *testing.T) {
		store, next := newCachedIdentityStore(t)
		require.NoError(t, next.CreateUser(ctx, "alice", []byte("secret")))

		ok, err := store.Authenticate(ctx, "alice", []byte("secret"), "inst")
		require.NoError(t, err)
		require.True(t, ok)

		// Mutate the wrapped store directly; the stale cached answer wins
		// until the cache is cleared.
		require.NoError(t, next.ChangePassword(ctx, "alice", []byte("rotated")))

		ok, err = store.Authenticate(ctx, "alice", []byte("secret"), "inst")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, store.ClearCache(ctx, "alice"))

		ok, err = store.Authenticate(ctx, "alice", []byte("secret"), "inst")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("failed authentications are not cached", func(t *testing.T) {
		store, next := newCachedIdentityStore(t)
		require.NoError(t, next.CreateUser(ctx, "alice", []byte("secret")))

		ok, err := store.Authenticate(ctx, "alice", []byte("wrong"), "inst")
		require.NoError(t, err)
		require.False(t, ok)

		pending, err := store.CachesToClear(ctx)
		require.NoError(t, err)
		assert.False(t, pending)
	})
}

func TestCachedIdentityStore_UserExists(t *testing.T) {
	ctx := context.Background()
	store, next := newCachedIdentityStore(t)

	// Negative answers are cached too.
	exists, err := store.UserExists(ctx, "bob")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, next.CreateUser(ctx, "bob", []byte("secret")))

	exists, err = store.UserExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.ClearCache(ctx, "bob"))

	exists, err = store.UserExists(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCachedIdentityStore_MutationsClearCache(t *testing.T) {
	ctx := context.Background()
	store, _ := newCachedIdentityStore(t)

	require.NoError(t, store.CreateUser(ctx, "carol", []byte("old")))

	ok, err := store.Authenticate(ctx, "carol", []byte("old"), "inst")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.ChangePassword(ctx, "carol", []byte("new")))

	ok, err = store.Authenticate(ctx, "carol", []byte("old"), "inst")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Authenticate(ctx, "carol", []byte("new"), "inst")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedIdentityStore_CachesToClear(t *testing.T) {
	ctx := context.Background()
	store, next := newCachedIdentityStore(t)
	require.NoError(t, next.CreateUser(ctx, "dave", []byte("secret")))

	pending, err := store.CachesToClear(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	_, err = store.Authenticate(ctx, "dave", []byte("secret"), "inst")
	require.NoError(t, err)

	pending, err = store.CachesToClear(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, store.ClearCache(ctx, "dave"))

	pending, err = store.CachesToClear(ctx)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestCachedIdentityStore_Compatibility(t *testing.T) {
	store, _ := newCachedIdentityStore(t)

	assert.Equal(t, "memory", store.StorageFamily())
	assert.True(t, store.CompatibleWith(NewMemoryPermissionStore()))
	assert.False(t, store.CompatibleWith(NewPostgreSQLPermissionStore(nil)))
}
