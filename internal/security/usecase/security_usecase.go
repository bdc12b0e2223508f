package usecase

import (
	"context"
	"sync"

	"github.com/loamstore/access/internal/cluster"
	"github.com/loamstore/access/internal/database"
	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/backend"
	"github.com/loamstore/access/internal/security/domain"
)

// securityUseCase implements SecurityUseCase over one identity store and one
// permission store, bound for the engine's lifetime.
type securityUseCase struct {
	identities  backend.IdentityStore
	permissions backend.PermissionStore
	registry    cluster.Registry
	txManager   database.TxManager

	instanceID   string
	systemSecret []byte

	// rootUser is resolved from the coordination registry at most once;
	// first caller wins, later callers read the memoized value.
	rootMu   sync.Mutex
	rootUser string
}

// NewSecurityUseCase binds an identity store and a permission store into a
// decision engine. Construction fails if the stores do not declare mutual
// compatibility. txManager may be nil when the stores do not share a
// transactional database.
func NewSecurityUseCase(
	ctx context.Context,
	identities backend.IdentityStore,
	permissions backend.PermissionStore,
	registry cluster.Registry,
	txManager database.TxManager,
	systemSecret []byte,
) (SecurityUseCase, error) {
	if !identities.CompatibleWith(permissions) || !permissions.CompatibleWith(identities) {
		return nil, apperrors.New(
			"identity and permission backends are not compatible with each other; " +
				"choose authentication and authorization mechanisms that can be paired")
	}

	instanceID, err := registry.InstanceID(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to resolve cluster instance id")
	}

	return &securityUseCase{
		identities:   identities,
		permissions:  permissions,
		registry:     registry,
		txManager:    txManager,
		instanceID:   instanceID,
		systemSecret: systemSecret,
	}, nil
}

// rootUsername returns the bootstrap superuser name, contacting the
// coordination registry only on the first call.
func (s *securityUseCase) rootUsername(ctx context.Context) (string, error) {
	s.rootMu.Lock()
	defer s.rootMu.Unlock()

	if s.rootUser != "" {
		return s.rootUser, nil
	}

	name, err := s.registry.RootUsername(ctx)
	if err != nil {
		return "", err
	}
	s.rootUser = name
	return name, nil
}

// authenticate verifies the presented credentials. The system identity is
// matched against the process-wide system credential; the identity backend
// is never consulted for it.
func (s *securityUseCase) authenticate(ctx context.Context, c domain.Credentials) error {
	if c.InstanceID != s.instanceID {
		return domain.NewError(c.User, domain.ErrCodeInvalidInstance)
	}

	if c.IsSystem() {
		if c.SecretMatches(s.systemSecret) {
			return nil
		}
		return domain.NewError(c.User, domain.ErrCodeBadCredentials)
	}

	ok, err := s.identities.Authenticate(ctx, c.User, c.Secret, c.InstanceID)
	if err != nil || !ok {
		return domain.NewError(c.User, domain.ErrCodeBadCredentials)
	}
	return nil
}

// targetUserExists verifies the target identity is known. The system and
// root identities always exist without a backend call.
func (s *securityUseCase) targetUserExists(ctx context.Context, user string) error {
	if user == domain.SystemUsername {
		return nil
	}
	root, err := s.rootUsername(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to resolve root username")
	}
	if user == root {
		return nil
	}

	exists, err := s.identities.UserExists(ctx, user)
	if err != nil {
		return apperrors.Wrap(err, "failed to check user existence")
	}
	if !exists {
		return domain.NewError(user, domain.ErrCodeUserDoesntExist)
	}
	return nil
}

// hasSystemPermission checks a system permission for an existing user.
// The root and system identities implicitly hold every system permission.
func (s *securityUseCase) hasSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) (bool, error) {
	if user == domain.SystemUsername {
		return true, nil
	}
	root, err := s.rootUsername(ctx)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to resolve root username")
	}
	if user == root {
		return true, nil
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return false, err
	}

	held, err := s.permissions.HasSystemPermission(ctx, user, perm)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check system permission")
	}
	return held, nil
}

// hasTablePermission checks a table permission for an existing user. The
// system identity implicitly holds every table permission, and READ on the
// metadata table is granted to everyone.
func (s *securityUseCase) hasTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) (bool, error) {
	if user == domain.SystemUsername {
		return true, nil
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return false, err
	}

	if table == domain.MetadataTableID && perm == domain.TablePermissionRead {
		return true, nil
	}

	held, err := s.permissions.HasTablePermission(ctx, user, table, perm)
	if err != nil {
		if apperrors.Is(err, backend.ErrTableNotFound) {
			return false, domain.NewError(user, domain.ErrCodeTableDoesntExist)
		}
		return false, apperrors.Wrap(err, "failed to check table permission")
	}
	return held, nil
}

// canAskAboutOtherUsers gates the permission query operations: callers may
// ask about themselves, or must hold one of the user-administration
// permissions.
func (s *securityUseCase) canAskAboutOtherUsers(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if c.User == user {
		return true, nil
	}
	for _, perm := range []domain.SystemPermission{
		domain.SystemPermissionSystem,
		domain.SystemPermissionCreateUser,
		domain.SystemPermissionAlterUser,
		domain.SystemPermissionDropUser,
	} {
		held, err := s.hasSystemPermission(ctx, c.User, perm)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}
	return false, nil
}

// InitializeSecurity seeds the root identity. Gated on authenticating as
// the system identity. The metadata-table grant targets a table that was
// just confirmed to exist, so a not-found there is an unrecoverable
// bootstrap failure rather than a caller error.
func (s *securityUseCase) InitializeSecurity(ctx context.Context, c domain.Credentials, rootUser string, rootSecret []byte) error {
	if err := s.authenticate(ctx, c); err != nil {
		return err
	}
	if !c.IsSystem() {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.identities.Initialize(ctx, rootUser, rootSecret); err != nil {
		return apperrors.Wrap(err, "failed to initialize identity backend")
	}
	if err := s.permissions.Initialize(ctx, rootUser); err != nil {
		return apperrors.Wrap(err, "failed to initialize permission backend")
	}
	if err := s.registry.SetRootUsername(ctx, rootUser); err != nil {
		return apperrors.Wrap(err, "failed to record root username")
	}

	if err := s.permissions.GrantTablePermission(ctx, rootUser, domain.MetadataTableID, domain.TablePermissionAlterTable); err != nil {
		return apperrors.Wrap(err, "failed to grant root alter rights on the metadata table")
	}
	return nil
}

// AuthenticateUser verifies a user's credentials on behalf of the caller.
func (s *securityUseCase) AuthenticateUser(ctx context.Context, c domain.Credentials, user string, secret []byte) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}

	if c.User == user {
		return true, nil
	}

	allowed, err := s.CanPerformSystemActions(ctx, c)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	ok, err := s.identities.Authenticate(ctx, user, secret, c.InstanceID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to authenticate user")
	}
	return ok, nil
}

// GetUserAuthorizations returns a user's visibility labels. The system
// identity needs no record-level authorizations for the tables it reads.
func (s *securityUseCase) GetUserAuthorizations(ctx context.Context, c domain.Credentials, user string) (domain.Authorizations, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return nil, err
	}
	if err := s.targetUserExists(ctx, user); err != nil {
		return nil, err
	}

	if c.User != user {
		held, err := s.hasSystemPermission(ctx, c.User, domain.SystemPermissionSystem)
		if err != nil {
			return nil, err
		}
		if !held {
			return nil, domain.NewError(c.User, domain.ErrCodePermissionDenied)
		}
	}

	if user == domain.SystemUsername {
		return domain.NoAuthorizations, nil
	}

	auths, err := s.permissions.GetUserAuthorizations(ctx, user)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get authorizations")
	}
	return auths, nil
}

// HasSystemPermission answers a permission query about a user.
func (s *securityUseCase) HasSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	allowed, err := s.canAskAboutOtherUsers(ctx, c, user)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	return s.hasSystemPermission(ctx, user, perm)
}

// HasTablePermission answers a table-permission query about a user.
func (s *securityUseCase) HasTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) (bool, error) {
	allowed, err := s.canAskAboutOtherUsers(ctx, c, user)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	return s.hasTablePermission(ctx, user, table, perm)
}

// ListUsers returns every known username.
func (s *securityUseCase) ListUsers(ctx context.Context, c domain.Credentials) ([]string, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return nil, err
	}
	users, err := s.identities.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	return users, nil
}

// CanScan requires table READ.
func (s *securityUseCase) CanScan(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.hasTablePermission(ctx, c.User, table, domain.TablePermissionRead)
}

// CanWrite requires table WRITE.
func (s *securityUseCase) CanWrite(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.hasTablePermission(ctx, c.User, table, domain.TablePermissionWrite)
}

// CanSplitTablet requires system ALTER_TABLE, SYSTEM, or table ALTER_TABLE.
func (s *securityUseCase) CanSplitTablet(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.sysPerm(c.User, domain.SystemPermissionSystem),
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
	)
}

// CanPerformSystemActions is the check for any cluster-level action:
// tablet loads, shutdown, altering system properties.
func (s *securityUseCase) CanPerformSystemActions(ctx context.Context, c domain.Credentials) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionSystem)
}

// CanFlush requires table WRITE or table ALTER_TABLE.
func (s *securityUseCase) CanFlush(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.tabPerm(c.User, table, domain.TablePermissionWrite),
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
	)
}

// CanAlterTable requires table ALTER_TABLE or system ALTER_TABLE.
func (s *securityUseCase) CanAlterTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
	)
}

// CanCreateTable requires system CREATE_TABLE.
func (s *securityUseCase) CanCreateTable(ctx context.Context, c domain.Credentials) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionCreateTable)
}

// CanRenameTable requires system ALTER_TABLE or table ALTER_TABLE.
func (s *securityUseCase) CanRenameTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
	)
}

// CanCloneTable requires system CREATE_TABLE and table READ on the source.
func (s *securityUseCase) CanCloneTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	canCreate, err := s.hasSystemPermission(ctx, c.User, domain.SystemPermissionCreateTable)
	if err != nil {
		return false, err
	}
	if !canCreate {
		return false, nil
	}
	return s.hasTablePermission(ctx, c.User, table, domain.TablePermissionRead)
}

// CanDeleteTable requires system DROP_TABLE or table DROP_TABLE.
func (s *securityUseCase) CanDeleteTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionDropTable),
		s.tabPerm(c.User, table, domain.TablePermissionDropTable),
	)
}

// CanOnlineOfflineTable requires SYSTEM, system ALTER_TABLE, or table
// ALTER_TABLE.
func (s *securityUseCase) CanOnlineOfflineTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionSystem),
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
	)
}

// CanMerge requires SYSTEM, system ALTER_TABLE, or table ALTER_TABLE.
func (s *securityUseCase) CanMerge(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionSystem),
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
	)
}

// CanDeleteRange requires SYSTEM or table WRITE.
func (s *securityUseCase) CanDeleteRange(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionSystem),
		s.tabPerm(c.User, table, domain.TablePermissionWrite),
	)
}

// CanBulkImport requires table BULK_IMPORT.
func (s *securityUseCase) CanBulkImport(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.hasTablePermission(ctx, c.User, table, domain.TablePermissionBulkImport)
}

// CanCompact requires system ALTER_TABLE, table ALTER_TABLE, or table WRITE.
func (s *securityUseCase) CanCompact(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionWrite),
	)
}

// CanChangeAuthorizations denies outright for the system identity, then
// requires system ALTER_USER.
func (s *securityUseCase) CanChangeAuthorizations(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if user == domain.SystemUsername {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionAlterUser)
}

// CanChangePassword denies outright for the system identity, then allows
// self-service or system ALTER_TABLE. ALTER_TABLE here matches the
// long-standing production behavior; see the policy tests before changing it.
func (s *securityUseCase) CanChangePassword(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if user == domain.SystemUsername {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	if c.User == user {
		return true, nil
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionAlterTable)
}

// CanCreateUser denies names colliding with the system identity, then
// requires system CREATE_USER.
func (s *securityUseCase) CanCreateUser(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if user == domain.SystemUsername {
		return false, domain.NewError(user, domain.ErrCodePermissionDenied)
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionCreateUser)
}

// CanDropUser denies for the root and system identities, then requires
// system DROP_USER.
func (s *securityUseCase) CanDropUser(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	root, err := s.rootUsername(ctx)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to resolve root username")
	}
	if user == root || user == domain.SystemUsername {
		return false, domain.NewError(user, domain.ErrCodePermissionDenied)
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionDropUser)
}

// CanGrantSystem denies for the system identity and for GRANT itself, then
// requires system GRANT.
func (s *securityUseCase) CanGrantSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if user == domain.SystemUsername {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	if perm == domain.SystemPermissionGrant {
		return false, domain.NewError(c.User, domain.ErrCodeGrantInvalid)
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionGrant)
}

// CanGrantTable denies for the system identity, then requires system
// ALTER_TABLE or table GRANT.
func (s *securityUseCase) CanGrantTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if user == domain.SystemUsername {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionGrant),
	)
}

// CanRevokeSystem denies for the root and system identities and for GRANT
// itself, then requires system GRANT.
func (s *securityUseCase) CanRevokeSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	root, err := s.rootUsername(ctx)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to resolve root username")
	}
	if user == root || user == domain.SystemUsername {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	if perm == domain.SystemPermissionGrant {
		return false, domain.NewError(c.User, domain.ErrCodeGrantInvalid)
	}
	return s.hasSystemPermission(ctx, c.User, domain.SystemPermissionGrant)
}

// CanRevokeTable denies for the system identity, then requires system
// ALTER_TABLE or table GRANT.
func (s *securityUseCase) CanRevokeTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error) {
	if err := s.authenticate(ctx, c); err != nil {
		return false, err
	}
	if user == domain.SystemUsername {
		return false, domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}
	return s.anyOf(ctx,
		s.sysPerm(c.User, domain.SystemPermissionAlterTable),
		s.tabPerm(c.User, table, domain.TablePermissionGrant),
	)
}

// CreateUser initializes both the identity record and an empty permission
// record, then applies requested authorizations when the caller may also
// change authorizations.
func (s *securityUseCase) CreateUser(ctx context.Context, c domain.Credentials, user string, secret []byte, auths domain.Authorizations) error {
	allowed, err := s.CanCreateUser(ctx, c, user)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	err = s.runAtomic(ctx, func(ctx context.Context) error {
		if err := s.identities.CreateUser(ctx, user, secret); err != nil {
			return apperrors.Wrap(err, "failed to create user")
		}
		if err := s.permissions.InitUser(ctx, user); err != nil {
			return apperrors.Wrap(err, "failed to init user permissions")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(auths) == 0 {
		return nil
	}
	canChange, err := s.CanChangeAuthorizations(ctx, c, user)
	if err != nil {
		return err
	}
	if canChange {
		if err := s.permissions.ChangeAuthorizations(ctx, user, auths); err != nil {
			return apperrors.Wrap(err, "failed to set initial authorizations")
		}
	}
	return nil
}

// DropUser removes the user from both backends.
func (s *securityUseCase) DropUser(ctx context.Context, c domain.Credentials, user string) error {
	allowed, err := s.CanDropUser(ctx, c, user)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	return s.runAtomic(ctx, func(ctx context.Context) error {
		if err := s.permissions.DropUser(ctx, user); err != nil {
			return apperrors.Wrap(err, "failed to drop user permissions")
		}
		if err := s.identities.DropUser(ctx, user); err != nil {
			if apperrors.Is(err, backend.ErrUserNotFound) {
				return domain.NewError(user, domain.ErrCodeUserDoesntExist)
			}
			return apperrors.Wrap(err, "failed to drop user")
		}
		return nil
	})
}

// ChangePassword replaces the target user's secret.
func (s *securityUseCase) ChangePassword(ctx context.Context, c domain.Credentials, user string, secret []byte) error {
	allowed, err := s.CanChangePassword(ctx, c, user)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.identities.ChangePassword(ctx, user, secret); err != nil {
		if apperrors.Is(err, backend.ErrUserNotFound) {
			return domain.NewError(user, domain.ErrCodeUserDoesntExist)
		}
		return apperrors.Wrap(err, "failed to change password")
	}
	return nil
}

// ChangeAuthorizations replaces the target user's visibility labels.
func (s *securityUseCase) ChangeAuthorizations(ctx context.Context, c domain.Credentials, user string, auths domain.Authorizations) error {
	allowed, err := s.CanChangeAuthorizations(ctx, c, user)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return err
	}

	if err := s.permissions.ChangeAuthorizations(ctx, user, auths); err != nil {
		return apperrors.Wrap(err, "failed to change authorizations")
	}
	return nil
}

// GrantSystemPermission adds a cluster-wide permission to the target user.
func (s *securityUseCase) GrantSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error {
	allowed, err := s.CanGrantSystem(ctx, c, user, perm)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return err
	}

	if err := s.permissions.GrantSystemPermission(ctx, user, perm); err != nil {
		return apperrors.Wrap(err, "failed to grant system permission")
	}
	return nil
}

// RevokeSystemPermission removes a cluster-wide permission from the target user.
func (s *securityUseCase) RevokeSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error {
	allowed, err := s.CanRevokeSystem(ctx, c, user, perm)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return err
	}

	if err := s.permissions.RevokeSystemPermission(ctx, user, perm); err != nil {
		return apperrors.Wrap(err, "failed to revoke system permission")
	}
	return nil
}

// GrantTablePermission adds a table-scoped permission to the target user.
func (s *securityUseCase) GrantTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error {
	allowed, err := s.CanGrantTable(ctx, c, user, table)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return err
	}

	if err := s.permissions.GrantTablePermission(ctx, user, table, perm); err != nil {
		if apperrors.Is(err, backend.ErrTableNotFound) {
			return domain.NewError(c.User, domain.ErrCodeTableDoesntExist)
		}
		return apperrors.Wrap(err, "failed to grant table permission")
	}
	return nil
}

// RevokeTablePermission removes a table-scoped permission from the target user.
func (s *securityUseCase) RevokeTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error {
	allowed, err := s.CanRevokeTable(ctx, c, user, table)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.targetUserExists(ctx, user); err != nil {
		return err
	}

	if err := s.permissions.RevokeTablePermission(ctx, user, table, perm); err != nil {
		if apperrors.Is(err, backend.ErrTableNotFound) {
			return domain.NewError(c.User, domain.ErrCodeTableDoesntExist)
		}
		return apperrors.Wrap(err, "failed to revoke table permission")
	}
	return nil
}

// DeleteTable cleans all permission records for a table being dropped.
func (s *securityUseCase) DeleteTable(ctx context.Context, c domain.Credentials, table string) error {
	allowed, err := s.CanDeleteTable(ctx, c, table)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.NewError(c.User, domain.ErrCodePermissionDenied)
	}

	if err := s.permissions.CleanTablePermissions(ctx, table); err != nil {
		if apperrors.Is(err, backend.ErrTableNotFound) {
			return domain.NewError(c.User, domain.ErrCodeTableDoesntExist)
		}
		return apperrors.Wrap(err, "failed to clean table permissions")
	}
	return nil
}

// ClearUserCache fans a cache clear out to the backends holding the
// requested entry kinds.
func (s *securityUseCase) ClearUserCache(ctx context.Context, user string, password, auths, system bool, tables []string) error {
	if password {
		if err := s.identities.ClearCache(ctx, user); err != nil {
			return apperrors.Wrap(err, "failed to clear identity cache")
		}
	}

	if auths || system || len(tables) > 0 {
		if err := s.permissions.ClearCache(ctx, user, auths, system, tables); err != nil {
			if apperrors.Is(err, backend.ErrTableNotFound) {
				return domain.NewError(user, domain.ErrCodeTableDoesntExist)
			}
			return apperrors.Wrap(err, "failed to clear permission cache")
		}
	}
	return nil
}

// ClearTableCache clears permission entries scoped to a table.
func (s *securityUseCase) ClearTableCache(ctx context.Context, table string) error {
	if err := s.permissions.ClearTableCache(ctx, table); err != nil {
		if apperrors.Is(err, backend.ErrTableNotFound) {
			return domain.NewError(table, domain.ErrCodeTableDoesntExist)
		}
		return apperrors.Wrap(err, "failed to clear table cache")
	}
	return nil
}

// CachesToClear reports whether either backend holds pending cache state.
func (s *securityUseCase) CachesToClear(ctx context.Context) (bool, error) {
	pending, err := s.identities.CachesToClear(ctx)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check identity cache state")
	}
	if pending {
		return true, nil
	}

	pending, err = s.permissions.CachesToClear(ctx)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check permission cache state")
	}
	return pending, nil
}

// runAtomic executes fn inside a transaction when the backends share a
// transactional database, and directly otherwise.
func (s *securityUseCase) runAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithTx(ctx, fn)
}

// permCheck defers a permission lookup so anyOf can short-circuit.
type permCheck func(ctx context.Context) (bool, error)

func (s *securityUseCase) sysPerm(user string, perm domain.SystemPermission) permCheck {
	return func(ctx context.Context) (bool, error) {
		return s.hasSystemPermission(ctx, user, perm)
	}
}

func (s *securityUseCase) tabPerm(user, table string, perm domain.TablePermission) permCheck {
	return func(ctx context.Context) (bool, error) {
		return s.hasTablePermission(ctx, user, table, perm)
	}
}

// anyOf evaluates checks left to right, stopping on the first hold.
func (s *securityUseCase) anyOf(ctx context.Context, checks ...permCheck) (bool, error) {
	for _, check := range checks {
		held, err := check(ctx)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}
	return false, nil
}
