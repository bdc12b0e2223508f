package usecase

import (
	"context"
	"log/slog"

	"github.com/loamstore/access/internal/security/domain"
)

// auditedSecurityUseCase decorates SecurityUseCase with an audit trail.
// Every mutation and every credential check is logged with its outcome;
// read-only permission probes are logged only when they deny or fail.
type auditedSecurityUseCase struct {
	next   SecurityUseCase
	logger *slog.Logger
}

// NewAuditedSecurityUseCase wraps a SecurityUseCase with audit logging.
func NewAuditedSecurityUseCase(next SecurityUseCase, logger *slog.Logger) SecurityUseCase {
	return &auditedSecurityUseCase{
		next:   next,
		logger: logger.With(slog.String("component", "security_audit")),
	}
}

// auditMutation records the outcome of a state-changing operation.
func (a *auditedSecurityUseCase) auditMutation(ctx context.Context, op, caller string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+3)
	args = append(args, slog.String("operation", op), slog.String("caller", caller))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		a.logger.ErrorContext(ctx, "security operation failed", args...)
		return
	}
	a.logger.InfoContext(ctx, "security operation succeeded", args...)
}

// auditCheck records a permission probe only when it denies or errors.
func (a *auditedSecurityUseCase) auditCheck(ctx context.Context, op, caller string, allowed bool, err error, attrs ...slog.Attr) {
	if err == nil && allowed {
		return
	}
	args := make([]any, 0, len(attrs)+3)
	args = append(args, slog.String("operation", op), slog.String("caller", caller))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
		a.logger.WarnContext(ctx, "security check failed", args...)
		return
	}
	a.logger.WarnContext(ctx, "security check denied", args...)
}

func (a *auditedSecurityUseCase) InitializeSecurity(ctx context.Context, c domain.Credentials, rootUser string, rootSecret []byte) error {
	err := a.next.InitializeSecurity(ctx, c, rootUser, rootSecret)
	a.auditMutation(ctx, "initialize_security", c.User, err, slog.String("root_user", rootUser))
	return err
}

func (a *auditedSecurityUseCase) AuthenticateUser(ctx context.Context, c domain.Credentials, user string, secret []byte) (bool, error) {
	ok, err := a.next.AuthenticateUser(ctx, c, user, secret)
	a.auditCheck(ctx, "authenticate_user", c.User, ok, err, slog.String("user", user))
	return ok, err
}

func (a *auditedSecurityUseCase) GetUserAuthorizations(ctx context.Context, c domain.Credentials, user string) (domain.Authorizations, error) {
	auths, err := a.next.GetUserAuthorizations(ctx, c, user)
	a.auditCheck(ctx, "get_user_authorizations", c.User, err == nil, err, slog.String("user", user))
	return auths, err
}

func (a *auditedSecurityUseCase) HasSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	held, err := a.next.HasSystemPermission(ctx, c, user, perm)
	a.auditCheck(ctx, "has_system_permission", c.User, err == nil, err,
		slog.String("user", user), slog.String("permission", perm.String()))
	return held, err
}

func (a *auditedSecurityUseCase) HasTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) (bool, error) {
	held, err := a.next.HasTablePermission(ctx, c, user, table, perm)
	a.auditCheck(ctx, "has_table_permission", c.User, err == nil, err,
		slog.String("user", user), slog.String("table", table), slog.String("permission", perm.String()))
	return held, err
}

func (a *auditedSecurityUseCase) ListUsers(ctx context.Context, c domain.Credentials) ([]string, error) {
	users, err := a.next.ListUsers(ctx, c)
	a.auditCheck(ctx, "list_users", c.User, err == nil, err)
	return users, err
}

func (a *auditedSecurityUseCase) CanScan(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanScan(ctx, c, table)
	a.auditCheck(ctx, "can_scan", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanWrite(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanWrite(ctx, c, table)
	a.auditCheck(ctx, "can_write", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanSplitTablet(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanSplitTablet(ctx, c, table)
	a.auditCheck(ctx, "can_split_tablet", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanPerformSystemActions(ctx context.Context, c domain.Credentials) (bool, error) {
	allowed, err := a.next.CanPerformSystemActions(ctx, c)
	a.auditCheck(ctx, "can_perform_system_actions", c.User, allowed, err)
	return allowed, err
}

func (a *auditedSecurityUseCase) CanFlush(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanFlush(ctx, c, table)
	a.auditCheck(ctx, "can_flush", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanAlterTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanAlterTable(ctx, c, table)
	a.auditCheck(ctx, "can_alter_table", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanCreateTable(ctx context.Context, c domain.Credentials) (bool, error) {
	allowed, err := a.next.CanCreateTable(ctx, c)
	a.auditCheck(ctx, "can_create_table", c.User, allowed, err)
	return allowed, err
}

func (a *auditedSecurityUseCase) CanRenameTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanRenameTable(ctx, c, table)
	a.auditCheck(ctx, "can_rename_table", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanCloneTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanCloneTable(ctx, c, table)
	a.auditCheck(ctx, "can_clone_table", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanDeleteTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanDeleteTable(ctx, c, table)
	a.auditCheck(ctx, "can_delete_table", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanOnlineOfflineTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanOnlineOfflineTable(ctx, c, table)
	a.auditCheck(ctx, "can_online_offline_table", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanMerge(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanMerge(ctx, c, table)
	a.auditCheck(ctx, "can_merge", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanDeleteRange(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanDeleteRange(ctx, c, table)
	a.auditCheck(ctx, "can_delete_range", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanBulkImport(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanBulkImport(ctx, c, table)
	a.auditCheck(ctx, "can_bulk_import", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanCompact(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	allowed, err := a.next.CanCompact(ctx, c, table)
	a.auditCheck(ctx, "can_compact", c.User, allowed, err, slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanChangeAuthorizations(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	allowed, err := a.next.CanChangeAuthorizations(ctx, c, user)
	a.auditCheck(ctx, "can_change_authorizations", c.User, allowed, err, slog.String("user", user))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanChangePassword(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	allowed, err := a.next.CanChangePassword(ctx, c, user)
	a.auditCheck(ctx, "can_change_password", c.User, allowed, err, slog.String("user", user))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanCreateUser(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	allowed, err := a.next.CanCreateUser(ctx, c, user)
	a.auditCheck(ctx, "can_create_user", c.User, allowed, err, slog.String("user", user))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanDropUser(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	allowed, err := a.next.CanDropUser(ctx, c, user)
	a.auditCheck(ctx, "can_drop_user", c.User, allowed, err, slog.String("user", user))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanGrantSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	allowed, err := a.next.CanGrantSystem(ctx, c, user, perm)
	a.auditCheck(ctx, "can_grant_system", c.User, allowed, err,
		slog.String("user", user), slog.String("permission", perm.String()))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanGrantTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error) {
	allowed, err := a.next.CanGrantTable(ctx, c, user, table)
	a.auditCheck(ctx, "can_grant_table", c.User, allowed, err,
		slog.String("user", user), slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanRevokeSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	allowed, err := a.next.CanRevokeSystem(ctx, c, user, perm)
	a.auditCheck(ctx, "can_revoke_system", c.User, allowed, err,
		slog.String("user", user), slog.String("permission", perm.String()))
	return allowed, err
}

func (a *auditedSecurityUseCase) CanRevokeTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error) {
	allowed, err := a.next.CanRevokeTable(ctx, c, user, table)
	a.auditCheck(ctx, "can_revoke_table", c.User, allowed, err,
		slog.String("user", user), slog.String("table", table))
	return allowed, err
}

func (a *auditedSecurityUseCase) CreateUser(ctx context.Context, c domain.Credentials, user string, secret []byte, auths domain.Authorizations) error {
	err := a.next.CreateUser(ctx, c, user, secret, auths)
	a.auditMutation(ctx, "create_user", c.User, err,
		slog.String("user", user), slog.String("authorizations", auths.String()))
	return err
}

func (a *auditedSecurityUseCase) DropUser(ctx context.Context, c domain.Credentials, user string) error {
	err := a.next.DropUser(ctx, c, user)
	a.auditMutation(ctx, "drop_user", c.User, err, slog.String("user", user))
	return err
}

func (a *auditedSecurityUseCase) ChangePassword(ctx context.Context, c domain.Credentials, user string, secret []byte) error {
	err := a.next.ChangePassword(ctx, c, user, secret)
	a.auditMutation(ctx, "change_password", c.User, err, slog.String("user", user))
	return err
}

func (a *auditedSecurityUseCase) ChangeAuthorizations(ctx context.Context, c domain.Credentials, user string, auths domain.Authorizations) error {
	err := a.next.ChangeAuthorizations(ctx, c, user, auths)
	a.auditMutation(ctx, "change_authorizations", c.User, err,
		slog.String("user", user), slog.String("authorizations", auths.String()))
	return err
}

func (a *auditedSecurityUseCase) GrantSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error {
	err := a.next.GrantSystemPermission(ctx, c, user, perm)
	a.auditMutation(ctx, "grant_system_permission", c.User, err,
		slog.String("user", user), slog.String("permission", perm.String()))
	return err
}

func (a *auditedSecurityUseCase) RevokeSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error {
	err := a.next.RevokeSystemPermission(ctx, c, user, perm)
	a.auditMutation(ctx, "revoke_system_permission", c.User, err,
		slog.String("user", user), slog.String("permission", perm.String()))
	return err
}

func (a *auditedSecurityUseCase) GrantTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error {
	err := a.next.GrantTablePermission(ctx, c, user, table, perm)
	a.auditMutation(ctx, "grant_table_permission", c.User, err,
		slog.String("user", user), slog.String("table", table), slog.String("permission", perm.String()))
	return err
}

func (a *auditedSecurityUseCase) RevokeTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error {
	err := a.next.RevokeTablePermission(ctx, c, user, table, perm)
	a.auditMutation(ctx, "revoke_table_permission", c.User, err,
		slog.String("user", user), slog.String("table", table), slog.String("permission", perm.String()))
	return err
}

func (a *auditedSecurityUseCase) DeleteTable(ctx context.Context, c domain.Credentials, table string) error {
	err := a.next.DeleteTable(ctx, c, table)
	a.auditMutation(ctx, "delete_table", c.User, err, slog.String("table", table))
	return err
}

func (a *auditedSecurityUseCase) ClearUserCache(ctx context.Context, user string, password, auths, system bool, tables []string) error {
	err := a.next.ClearUserCache(ctx, user, password, auths, system, tables)
	a.auditMutation(ctx, "clear_user_cache", user, err,
		slog.Bool("password", password), slog.Bool("authorizations", auths),
		slog.Bool("system", system), slog.Int("tables", len(tables)))
	return err
}

func (a *auditedSecurityUseCase) ClearTableCache(ctx context.Context, table string) error {
	err := a.next.ClearTableCache(ctx, table)
	a.auditMutation(ctx, "clear_table_cache", "", err, slog.String("table", table))
	return err
}

func (a *auditedSecurityUseCase) CachesToClear(ctx context.Context) (bool, error) {
	return a.next.CachesToClear(ctx)
}
