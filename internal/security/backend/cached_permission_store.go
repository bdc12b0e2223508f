package backend

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/domain"
)

// Cache key layout for the permission store decorator. Entries are indexed
// per user and per table so clears can be scoped either way.
const (
	authzAuthsPrefix     = "access:authz:auths:"
	authzSysPrefix       = "access:authz:sys:"
	authzTabPrefix       = "access:authz:tab:"
	authzUserIndexPrefix = "access:authz:index:user:"
	authzTabIndexPrefix  = "access:authz:index:table:"
	authzUsersKey        = "access:authz:users"
	authzTablesKey       = "access:authz:tables"
)

// CachedPermissionStore is a read-through redis cache over a PermissionStore.
// Mutations conservatively clear every cached entry for the affected user or
// table rather than patching individual values.
type CachedPermissionStore struct {
	next PermissionStore
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedPermissionStore wraps a PermissionStore with a redis cache.
func NewCachedPermissionStore(next PermissionStore, rdb *redis.Client, ttl time.Duration) *CachedPermissionStore {
	return &CachedPermissionStore{next: next, rdb: rdb, ttl: ttl}
}

// GetUserAuthorizations serves the label set from cache. The cached value is
// the comma-joined normalized set; the empty set caches as the empty string.
func (s *CachedPermissionStore) GetUserAuthorizations(ctx context.Context, user string) (domain.Authorizations, error) {
	key := authzAuthsPrefix + user

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if val == "" {
			return domain.NoAuthorizations, nil
		}
		return domain.NewAuthorizations(strings.Split(val, ",")...), nil
	}

	auths, err := s.next.GetUserAuthorizations(ctx, user)
	if err != nil {
		return nil, err
	}

	s.remember(ctx, key, auths.String(), user, "")
	return auths, nil
}

// ChangeAuthorizations delegates and clears the user's cached entries.
func (s *CachedPermissionStore) ChangeAuthorizations(ctx context.Context, user string, auths domain.Authorizations) error {
	if err := s.next.ChangeAuthorizations(ctx, user, auths); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// HasSystemPermission serves the answer from cache.
func (s *CachedPermissionStore) HasSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) (bool, error) {
	key := authzSysPrefix + user + ":" + perm.String()

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		return val == "1", nil
	}

	held, err := s.next.HasSystemPermission(ctx, user, perm)
	if err != nil {
		return false, err
	}

	s.remember(ctx, key, boolVal(held), user, "")
	return held, nil
}

// HasTablePermission serves the answer from cache. Unknown-table errors are
// never cached.
func (s *CachedPermissionStore) HasTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) (bool, error) {
	key := authzTabPrefix + user + ":" + table + ":" + perm.String()

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		return val == "1", nil
	}

	held, err := s.next.HasTablePermission(ctx, user, table, perm)
	if err != nil {
		return false, err
	}

	s.remember(ctx, key, boolVal(held), user, table)
	return held, nil
}

// GrantSystemPermission delegates and clears the user's cached entries.
func (s *CachedPermissionStore) GrantSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) error {
	if err := s.next.GrantSystemPermission(ctx, user, perm); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// RevokeSystemPermission delegates and clears the user's cached entries.
func (s *CachedPermissionStore) RevokeSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) error {
	if err := s.next.RevokeSystemPermission(ctx, user, perm); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// GrantTablePermission delegates and clears the user's cached entries.
func (s *CachedPermissionStore) GrantTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) error {
	if err := s.next.GrantTablePermission(ctx, user, table, perm); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// RevokeTablePermission delegates and clears the user's cached entries.
func (s *CachedPermissionStore) RevokeTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) error {
	if err := s.next.RevokeTablePermission(ctx, user, table, perm); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// InitUser delegates and clears any stale entries for the user.
func (s *CachedPermissionStore) InitUser(ctx context.Context, user string) error {
	if err := s.next.InitUser(ctx, user); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// DropUser delegates and clears the user's cached entries.
func (s *CachedPermissionStore) DropUser(ctx context.Context, user string) error {
	if err := s.next.DropUser(ctx, user); err != nil {
		return err
	}
	return s.clearUser(ctx, user)
}

// CleanTablePermissions delegates and clears the table's cached entries.
func (s *CachedPermissionStore) CleanTablePermissions(ctx context.Context, table string) error {
	if err := s.next.CleanTablePermissions(ctx, table); err != nil {
		return err
	}
	return s.clearTable(ctx, table)
}

// Initialize is a passthrough.
func (s *CachedPermissionStore) Initialize(ctx context.Context, rootUser string) error {
	return s.next.Initialize(ctx, rootUser)
}

// ClearCache drops the user's cached entries selected by the flags: the
// authorization set, system-permission answers, and table-permission answers
// for the named tables.
func (s *CachedPermissionStore) ClearCache(ctx context.Context, user string, auths, system bool, tables []string) error {
	if err := s.next.ClearCache(ctx, user, auths, system, tables); err != nil {
		return err
	}

	indexKey := authzUserIndexPrefix + user
	keys, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return apperrors.Wrap(err, "failed to read permission cache index")
	}

	var doomed []string
	for _, key := range keys {
		switch {
		case auths && strings.HasPrefix(key, authzAuthsPrefix):
			doomed = append(doomed, key)
		case system && strings.HasPrefix(key, authzSysPrefix):
			doomed = append(doomed, key)
		default:
			for _, table := range tables {
				if strings.HasPrefix(key, authzTabPrefix+user+":"+table+":") {
					doomed = append(doomed, key)
					break
				}
			}
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, doomed...)
	pipe.SRem(ctx, indexKey, toAnySlice(doomed)...)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to clear permission cache")
	}

	// Drop the user from the pending set once nothing remains indexed.
	if n, err := s.rdb.SCard(ctx, indexKey).Result(); err == nil && n == 0 {
		_ = s.rdb.SRem(ctx, authzUsersKey, user).Err()
	}
	return nil
}

// ClearTableCache drops every cached entry scoped to the table.
func (s *CachedPermissionStore) ClearTableCache(ctx context.Context, table string) error {
	if err := s.next.ClearTableCache(ctx, table); err != nil {
		return err
	}
	return s.clearTable(ctx, table)
}

// CachesToClear reports whether any user or table still has cached entries.
func (s *CachedPermissionStore) CachesToClear(ctx context.Context) (bool, error) {
	if pending, err := s.next.CachesToClear(ctx); err != nil || pending {
		return pending, err
	}

	users, err := s.rdb.SCard(ctx, authzUsersKey).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check permission cache state")
	}
	if users > 0 {
		return true, nil
	}

	tables, err := s.rdb.SCard(ctx, authzTablesKey).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check permission cache state")
	}
	return tables > 0, nil
}

// CompatibleWith delegates to the wrapped store.
func (s *CachedPermissionStore) CompatibleWith(identities IdentityStore) bool {
	return s.next.CompatibleWith(identities)
}

// StorageFamily reports the wrapped store's family.
func (s *CachedPermissionStore) StorageFamily() string {
	if f, ok := s.next.(storageFamily); ok {
		return f.StorageFamily()
	}
	return ""
}

// clearUser removes every cached entry indexed under the user.
func (s *CachedPermissionStore) clearUser(ctx context.Context, user string) error {
	indexKey := authzUserIndexPrefix + user
	keys, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return apperrors.Wrap(err, "failed to read permission cache index")
	}

	pipe := s.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, indexKey)
	pipe.SRem(ctx, authzUsersKey, user)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to clear permission cache")
	}
	return nil
}

// clearTable removes every cached entry indexed under the table.
func (s *CachedPermissionStore) clearTable(ctx context.Context, table string) error {
	indexKey := authzTabIndexPrefix + table
	keys, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return apperrors.Wrap(err, "failed to read permission cache index")
	}

	pipe := s.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, indexKey)
	pipe.SRem(ctx, authzTablesKey, table)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to clear permission cache")
	}
	return nil
}

// remember stores a cache entry and records it in the user index, and in the
// table index when the entry is table-scoped. Write failures are ignored.
func (s *CachedPermissionStore) remember(ctx context.Context, key, val, user, table string) {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, val, s.ttl)
	pipe.SAdd(ctx, authzUserIndexPrefix+user, key)
	pipe.SAdd(ctx, authzUsersKey, user)
	if table != "" {
		pipe.SAdd(ctx, authzTabIndexPrefix+table, key)
		pipe.SAdd(ctx, authzTablesKey, table)
	}
	_, _ = pipe.Exec(ctx)
}

// boolVal renders a boolean as a cache value.
func boolVal(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// toAnySlice converts strings for variadic redis set arguments.
func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
