// Package usecase implements the access-control decision engine: the
// policy matrix evaluated before every action, the mutating operations it
// gates, and the cache-invalidation coordination across the identity and
// permission backends.
package usecase

import (
	"context"

	"github.com/loamstore/access/internal/security/domain"
)

// SecurityUseCase is the decision engine consumed by the transport layer.
// Every operation receives the caller's credentials and either returns its
// result or a typed security error attributable to a user name and reason
// code. Predicates return false for "not allowed"; they only error for
// authentication failures and the explicit identity-collision denials.
//
// The engine is stateless apart from a lazily memoized root username; it is
// safe for unbounded concurrent callers.
type SecurityUseCase interface {
	// InitializeSecurity seeds the bootstrap root identity and grants it
	// table-alteration rights on the metadata table. Only the system
	// identity may call it; it is intended to run once per cluster lifetime.
	InitializeSecurity(ctx context.Context, c domain.Credentials, rootUser string, rootSecret []byte) error

	// AuthenticateUser verifies another user's credentials. Callers may
	// always verify themselves; verifying others requires the SYSTEM
	// permission.
	AuthenticateUser(ctx context.Context, c domain.Credentials, user string, secret []byte) (bool, error)

	// GetUserAuthorizations returns a user's visibility labels. Callers may
	// read their own; reading others requires the SYSTEM permission.
	GetUserAuthorizations(ctx context.Context, c domain.Credentials, user string) (domain.Authorizations, error)

	// HasSystemPermission answers whether a user holds a system permission,
	// gated on the caller's right to ask about that user.
	HasSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error)

	// HasTablePermission answers whether a user holds a table permission,
	// gated on the caller's right to ask about that user.
	HasTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) (bool, error)

	// ListUsers returns every known username.
	ListUsers(ctx context.Context, c domain.Credentials) ([]string, error)

	// Table-action predicates.

	CanScan(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanWrite(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanSplitTablet(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanPerformSystemActions(ctx context.Context, c domain.Credentials) (bool, error)
	CanFlush(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanAlterTable(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanCreateTable(ctx context.Context, c domain.Credentials) (bool, error)
	CanRenameTable(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanCloneTable(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanDeleteTable(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanOnlineOfflineTable(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanMerge(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanDeleteRange(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanBulkImport(ctx context.Context, c domain.Credentials, table string) (bool, error)
	CanCompact(ctx context.Context, c domain.Credentials, table string) (bool, error)

	// User-action predicates. The target-identity denials (system identity,
	// root identity, the un-grantable GRANT permission) surface as typed
	// errors, never as false.

	CanChangeAuthorizations(ctx context.Context, c domain.Credentials, user string) (bool, error)
	CanChangePassword(ctx context.Context, c domain.Credentials, user string) (bool, error)
	CanCreateUser(ctx context.Context, c domain.Credentials, user string) (bool, error)
	CanDropUser(ctx context.Context, c domain.Credentials, user string) (bool, error)
	CanGrantSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error)
	CanGrantTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error)
	CanRevokeSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error)
	CanRevokeTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error)

	// Mutations. Each evaluates its predicate first and fails with
	// PERMISSION_DENIED attributed to the caller when it is false.

	CreateUser(ctx context.Context, c domain.Credentials, user string, secret []byte, auths domain.Authorizations) error
	DropUser(ctx context.Context, c domain.Credentials, user string) error
	ChangePassword(ctx context.Context, c domain.Credentials, user string, secret []byte) error
	ChangeAuthorizations(ctx context.Context, c domain.Credentials, user string, auths domain.Authorizations) error
	GrantSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error
	RevokeSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error
	GrantTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error
	RevokeTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error

	// DeleteTable removes every user's permissions on a table being dropped.
	DeleteTable(ctx context.Context, c domain.Credentials, table string) error

	// Cache invalidation coordination. These are node-internal operations
	// driven by the cluster's cache sweep, not by end-user credentials.

	// ClearUserCache clears the identity backend's cached credential when
	// password is set, and the permission backend's cached entries selected
	// by auths, system, and tables.
	ClearUserCache(ctx context.Context, user string, password, auths, system bool, tables []string) error

	// ClearTableCache clears permission-backend entries scoped to a table.
	ClearTableCache(ctx context.Context, table string) error

	// CachesToClear reports whether either backend still holds entries an
	// explicit sweep could clear.
	CachesToClear(ctx context.Context) (bool, error)
}
