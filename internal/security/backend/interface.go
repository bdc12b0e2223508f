// Package backend defines the pluggable capability interfaces the decision
// engine consumes, an identity store (authenticator) and a permission store
// (authorizer), together with their default implementations and the
// registry that selects one from configuration.
package backend

import (
	"context"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/domain"
)

// Backend "not found" conditions. The engine is the sole translation
// boundary: it maps these to the caller-visible security error taxonomy.
var (
	// ErrUserNotFound indicates the named user has no identity record.
	ErrUserNotFound = apperrors.Wrap(apperrors.ErrNotFound, "user not found")

	// ErrTableNotFound indicates the named table is unknown to the store.
	ErrTableNotFound = apperrors.Wrap(apperrors.ErrNotFound, "table not found")
)

// IdentityStore verifies and manages identities. Implementations may cache
// derived credential data; the engine only triggers clears, it never owns
// cache storage.
type IdentityStore interface {
	// Authenticate reports whether the secret is valid for the user.
	// Unknown users authenticate as false, not as an error.
	Authenticate(ctx context.Context, user string, secret []byte, instanceID string) (bool, error)

	// UserExists reports whether the user has an identity record.
	UserExists(ctx context.Context, user string) (bool, error)

	// CreateUser stores a new identity record. Returns ErrConflict if the
	// user already exists.
	CreateUser(ctx context.Context, user string, secret []byte) error

	// DropUser removes the identity record. Returns ErrUserNotFound if the
	// user does not exist.
	DropUser(ctx context.Context, user string) error

	// ChangePassword replaces the user's secret. Returns ErrUserNotFound if
	// the user does not exist.
	ChangePassword(ctx context.Context, user string, secret []byte) error

	// ListUsers returns every known username.
	ListUsers(ctx context.Context) ([]string, error)

	// Initialize seeds the bootstrap root identity. Runs once per cluster
	// lifetime.
	Initialize(ctx context.Context, rootUser string, rootSecret []byte) error

	// ClearCache drops any cached credential data for the user.
	ClearCache(ctx context.Context, user string) error

	// CachesToClear reports whether the store still holds derived entries
	// that an explicit sweep could clear.
	CachesToClear(ctx context.Context) (bool, error)

	// CompatibleWith declares whether this store can be paired with the
	// given permission store. Checked once at engine construction.
	CompatibleWith(permissions PermissionStore) bool
}

// PermissionStore answers and manages permission and authorization state.
type PermissionStore interface {
	// GetUserAuthorizations returns the user's visibility labels.
	GetUserAuthorizations(ctx context.Context, user string) (domain.Authorizations, error)

	// ChangeAuthorizations replaces the user's visibility labels.
	ChangeAuthorizations(ctx context.Context, user string, auths domain.Authorizations) error

	// HasSystemPermission reports whether the user holds the given
	// cluster-wide permission.
	HasSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) (bool, error)

	// HasTablePermission reports whether the user holds the given permission
	// on the table. Returns ErrTableNotFound for unknown tables.
	HasTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) (bool, error)

	// GrantSystemPermission adds a cluster-wide permission for the user.
	GrantSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) error

	// RevokeSystemPermission removes a cluster-wide permission from the user.
	RevokeSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) error

	// GrantTablePermission adds a table-scoped permission for the user.
	// Returns ErrTableNotFound for unknown tables.
	GrantTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) error

	// RevokeTablePermission removes a table-scoped permission from the user.
	// Returns ErrTableNotFound for unknown tables.
	RevokeTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) error

	// InitUser creates an empty permission record for a new user.
	InitUser(ctx context.Context, user string) error

	// DropUser removes every permission and authorization record for the user.
	DropUser(ctx context.Context, user string) error

	// CleanTablePermissions removes every user's permissions on the table,
	// used when the table is deleted. Returns ErrTableNotFound for unknown
	// tables.
	CleanTablePermissions(ctx context.Context, table string) error

	// Initialize seeds the bootstrap root identity's permission record.
	Initialize(ctx context.Context, rootUser string) error

	// ClearCache drops cached authorization, system-permission, or
	// table-permission entries for the user according to the flags.
	ClearCache(ctx context.Context, user string, auths, system bool, tables []string) error

	// ClearTableCache drops cached entries scoped to the table.
	ClearTableCache(ctx context.Context, table string) error

	// CachesToClear reports whether the store still holds derived entries
	// that an explicit sweep could clear.
	CachesToClear(ctx context.Context) (bool, error)

	// CompatibleWith declares whether this store can be paired with the
	// given identity store. Checked once at engine construction.
	CompatibleWith(identities IdentityStore) bool
}

// storageFamily is implemented by stores that persist in a named storage
// family; two stores are mutually compatible when their families match.
// Cache decorators delegate to the store they wrap.
type storageFamily interface {
	StorageFamily() string
}

// familiesMatch reports whether both values declare the same storage family.
func familiesMatch(a, b any) bool {
	fa, ok := a.(storageFamily)
	if !ok {
		return false
	}
	fb, ok := b.(storageFamily)
	if !ok {
		return false
	}
	return fa.StorageFamily() == fb.StorageFamily()
}
