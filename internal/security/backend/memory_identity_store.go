package backend

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"

	apperrors "github.com/loamstore/access/internal/errors"
)

// MemoryIdentityStore keeps identities in process memory. Intended for
// development and tests; nothing survives a restart.
type MemoryIdentityStore struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

// NewMemoryIdentityStore creates an empty in-memory identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{secrets: make(map[string][]byte)}
}

// Authenticate compares the presented secret with the stored one.
func (s *MemoryIdentityStore) Authenticate(_ context.Context, user string, secret []byte, _ string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.secrets[user]
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare(stored, secret) == 1, nil
}

// UserExists reports whether the user has a record.
func (s *MemoryIdentityStore) UserExists(_ context.Context, user string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.secrets[user]
	return ok, nil
}

// CreateUser stores a new identity record.
func (s *MemoryIdentityStore) CreateUser(_ context.Context, user string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[user]; ok {
		return apperrors.Wrapf(apperrors.ErrConflict, "user %q already exists", user)
	}
	s.secrets[user] = append([]byte(nil), secret...)
	return nil
}

// DropUser removes the identity record.
func (s *MemoryIdentityStore) DropUser(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[user]; !ok {
		return ErrUserNotFound
	}
	delete(s.secrets, user)
	return nil
}

// ChangePassword replaces the stored secret.
func (s *MemoryIdentityStore) ChangePassword(_ context.Context, user string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[user]; !ok {
		return ErrUserNotFound
	}
	s.secrets[user] = append([]byte(nil), secret...)
	return nil
}

// ListUsers returns every known username ordered by name.
func (s *MemoryIdentityStore) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.secrets))
	for user := range s.secrets {
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

// Initialize seeds the bootstrap root identity.
func (s *MemoryIdentityStore) Initialize(ctx context.Context, rootUser string, rootSecret []byte) error {
	return s.CreateUser(ctx, rootUser, rootSecret)
}

// ClearCache is a no-op: the store holds no derived data.
func (s *MemoryIdentityStore) ClearCache(_ context.Context, _ string) error { return nil }

// CachesToClear always reports false.
func (s *MemoryIdentityStore) CachesToClear(_ context.Context) (bool, error) { return false, nil }

// CompatibleWith pairs the store with permission stores of the same family.
func (s *MemoryIdentityStore) CompatibleWith(permissions PermissionStore) bool {
	return familiesMatch(s, permissions)
}

// StorageFamily identifies the backing storage for compatibility checks.
func (s *MemoryIdentityStore) StorageFamily() string { return "memory" }
