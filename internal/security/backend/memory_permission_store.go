package backend

import (
	"context"
	"sync"

	"github.com/loamstore/access/internal/security/domain"
)

// MemoryPermissionStore keeps permission and authorization state in process
// memory. Intended for development and tests.
type MemoryPermissionStore struct {
	mu     sync.RWMutex
	auths  map[string]domain.Authorizations
	system map[string]map[domain.SystemPermission]bool
	table  map[string]map[string]map[domain.TablePermission]bool
	tables map[string]bool
}

// NewMemoryPermissionStore creates an empty in-memory permission store.
// The metadata table is pre-registered.
func NewMemoryPermissionStore() *MemoryPermissionStore {
	return &MemoryPermissionStore{
		auths:  make(map[string]domain.Authorizations),
		system: make(map[string]map[domain.SystemPermission]bool),
		table:  make(map[string]map[string]map[domain.TablePermission]bool),
		tables: map[string]bool{domain.MetadataTableID: true},
	}
}

// AddTable registers a table so table-scoped operations on it succeed.
func (s *MemoryPermissionStore) AddTable(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = true
}

// GetUserAuthorizations returns the user's visibility labels.
func (s *MemoryPermissionStore) GetUserAuthorizations(_ context.Context, user string) (domain.Authorizations, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.auths[user]; ok {
		return a, nil
	}
	return domain.NoAuthorizations, nil
}

// ChangeAuthorizations replaces the user's visibility labels.
func (s *MemoryPermissionStore) ChangeAuthorizations(_ context.Context, user string, auths domain.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auths[user] = auths
	return nil
}

// HasSystemPermission reports whether the user holds the permission.
func (s *MemoryPermissionStore) HasSystemPermission(_ context.Context, user string, perm domain.SystemPermission) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.system[user][perm], nil
}

// HasTablePermission reports whether the user holds the permission on the table.
func (s *MemoryPermissionStore) HasTablePermission(_ context.Context, user string, table string, perm domain.TablePermission) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.tables[table] {
		return false, ErrTableNotFound
	}
	return s.table[user][table][perm], nil
}

// GrantSystemPermission adds a cluster-wide permission.
func (s *MemoryPermissionStore) GrantSystemPermission(_ context.Context, user string, perm domain.SystemPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system[user] == nil {
		s.system[user] = make(map[domain.SystemPermission]bool)
	}
	s.system[user][perm] = true
	return nil
}

// RevokeSystemPermission removes a cluster-wide permission.
func (s *MemoryPermissionStore) RevokeSystemPermission(_ context.Context, user string, perm domain.SystemPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.system[user], perm)
	return nil
}

// GrantTablePermission adds a table-scoped permission.
func (s *MemoryPermissionStore) GrantTablePermission(_ context.Context, user string, table string, perm domain.TablePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tables[table] {
		return ErrTableNotFound
	}
	if s.table[user] == nil {
		s.table[user] = make(map[string]map[domain.TablePermission]bool)
	}
	if s.table[user][table] == nil {
		s.table[user][table] = make(map[domain.TablePermission]bool)
	}
	s.table[user][table][perm] = true
	return nil
}

// RevokeTablePermission removes a table-scoped permission.
func (s *MemoryPermissionStore) RevokeTablePermission(_ context.Context, user string, table string, perm domain.TablePermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tables[table] {
		return ErrTableNotFound
	}
	delete(s.table[user][table], perm)
	return nil
}

// InitUser creates an empty permission record for a new user.
func (s *MemoryPermissionStore) InitUser(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auths[user]; !ok {
		s.auths[user] = domain.NoAuthorizations
	}
	return nil
}

// DropUser removes every record for the user.
func (s *MemoryPermissionStore) DropUser(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.auths, user)
	delete(s.system, user)
	delete(s.table, user)
	return nil
}

// CleanTablePermissions removes every user's permissions on the table.
func (s *MemoryPermissionStore) CleanTablePermissions(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tables[table] {
		return ErrTableNotFound
	}
	for user := range s.table {
		delete(s.table[user], table)
	}
	return nil
}

// Initialize seeds the bootstrap root identity's permission record.
func (s *MemoryPermissionStore) Initialize(ctx context.Context, rootUser string) error {
	return s.InitUser(ctx, rootUser)
}

// ClearCache is a no-op: the store holds no derived data.
func (s *MemoryPermissionStore) ClearCache(_ context.Context, _ string, _, _ bool, _ []string) error {
	return nil
}

// ClearTableCache validates the table and is otherwise a no-op.
func (s *MemoryPermissionStore) ClearTableCache(_ context.Context, table string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.tables[table] {
		return ErrTableNotFound
	}
	return nil
}

// CachesToClear always reports false.
func (s *MemoryPermissionStore) CachesToClear(_ context.Context) (bool, error) { return false, nil }

// CompatibleWith pairs the store with identity stores of the same family.
func (s *MemoryPermissionStore) CompatibleWith(identities IdentityStore) bool {
	return familiesMatch(s, identities)
}

// StorageFamily identifies the backing storage for compatibility checks.
func (s *MemoryPermissionStore) StorageFamily() string { return "memory" }
