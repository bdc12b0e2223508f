package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/loamstore/access/internal/errors"
)

// Cache key layout for the identity store decorator. Per-user index sets
// track which cache keys exist so clears and the pending-state query work
// without scanning the keyspace.
const (
	authnKeyPrefix   = "access:authn:key:"
	authnIndexPrefix = "access:authn:index:"
	authnUsersKey    = "access:authn:users"
)

// CachedIdentityStore is a read-through redis cache over an IdentityStore.
// Only successful authentications and existence answers are cached; entries
// expire after the configured TTL or on an explicit clear. Cache read
// failures fall through to the wrapped store.
type CachedIdentityStore struct {
	next IdentityStore
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedIdentityStore wraps an IdentityStore with a redis cache.
func NewCachedIdentityStore(next IdentityStore, rdb *redis.Client, ttl time.Duration) *CachedIdentityStore {
	return &CachedIdentityStore{next: next, rdb: rdb, ttl: ttl}
}

// Authenticate serves positive verifications from cache. Failed
// authentications are never cached, so a password change takes effect
// immediately for rejected secrets.
func (s *CachedIdentityStore) Authenticate(ctx context.Context, user string, secret []byte, instanceID string) (bool, error) {
	key := authnKeyPrefix + user + ":secret:" + digest(secret)

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil && val == "1" {
		return true, nil
	}

	ok, err := s.next.Authenticate(ctx, user, secret, instanceID)
	if err != nil || !ok {
		return ok, err
	}

	s.remember(ctx, user, key, "1")
	return true, nil
}

// UserExists serves existence answers from cache.
func (s *CachedIdentityStore) UserExists(ctx context.Context, user string) (bool, error) {
	key := authnKeyPrefix + user + ":exists"

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		return val == "1", nil
	}

	exists, err := s.next.UserExists(ctx, user)
	if err != nil {
		return false, err
	}

	val := "0"
	if exists {
		val = "1"
	}
	s.remember(ctx, user, key, val)
	return exists, nil
}

// CreateUser delegates and clears any stale entries for the user.
func (s *CachedIdentityStore) CreateUser(ctx context.Context, user string, secret []byte) error {
	if err := s.next.CreateUser(ctx, user, secret); err != nil {
		return err
	}
	return s.ClearCache(ctx, user)
}

// DropUser delegates and clears the user's cached entries.
func (s *CachedIdentityStore) DropUser(ctx context.Context, user string) error {
	if err := s.next.DropUser(ctx, user); err != nil {
		return err
	}
	return s.ClearCache(ctx, user)
}

// ChangePassword delegates and clears the user's cached credential.
func (s *CachedIdentityStore) ChangePassword(ctx context.Context, user string, secret []byte) error {
	if err := s.next.ChangePassword(ctx, user, secret); err != nil {
		return err
	}
	return s.ClearCache(ctx, user)
}

// ListUsers is a passthrough.
func (s *CachedIdentityStore) ListUsers(ctx context.Context) ([]string, error) {
	return s.next.ListUsers(ctx)
}

// Initialize is a passthrough.
func (s *CachedIdentityStore) Initialize(ctx context.Context, rootUser string, rootSecret []byte) error {
	return s.next.Initialize(ctx, rootUser, rootSecret)
}

// ClearCache removes every cached entry for the user.
func (s *CachedIdentityStore) ClearCache(ctx context.Context, user string) error {
	if err := s.next.ClearCache(ctx, user); err != nil {
		return err
	}

	indexKey := authnIndexPrefix + user
	keys, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return apperrors.Wrap(err, "failed to read identity cache index")
	}

	pipe := s.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, indexKey)
	pipe.SRem(ctx, authnUsersKey, user)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to clear identity cache")
	}
	return nil
}

// CachesToClear reports whether any user still has cached entries.
func (s *CachedIdentityStore) CachesToClear(ctx context.Context) (bool, error) {
	if pending, err := s.next.CachesToClear(ctx); err != nil || pending {
		return pending, err
	}

	n, err := s.rdb.SCard(ctx, authnUsersKey).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check identity cache state")
	}
	return n > 0, nil
}

// CompatibleWith delegates to the wrapped store.
func (s *CachedIdentityStore) CompatibleWith(permissions PermissionStore) bool {
	return s.next.CompatibleWith(permissions)
}

// StorageFamily reports the wrapped store's family.
func (s *CachedIdentityStore) StorageFamily() string {
	if f, ok := s.next.(storageFamily); ok {
		return f.StorageFamily()
	}
	return ""
}

// remember stores a cache entry and records it in the per-user index.
// Cache write failures are ignored: the next call reloads from the store.
func (s *CachedIdentityStore) remember(ctx context.Context, user, key, val string) {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, val, s.ttl)
	pipe.SAdd(ctx, authnIndexPrefix+user, key)
	pipe.SAdd(ctx, authnUsersKey, user)
	_, _ = pipe.Exec(ctx)
}

// digest fingerprints a secret for use in a cache key. The plain secret
// never reaches redis.
func digest(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:])
}
