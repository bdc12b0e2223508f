package usecase

import (
	"context"
	"time"

	"github.com/loamstore/access/internal/metrics"
	"github.com/loamstore/access/internal/security/domain"
)

// securityUseCaseWithMetrics decorates SecurityUseCase with metrics
// instrumentation.
type securityUseCaseWithMetrics struct {
	next    SecurityUseCase
	metrics metrics.BusinessMetrics
}

// NewSecurityUseCaseWithMetrics wraps a SecurityUseCase with metrics recording.
func NewSecurityUseCaseWithMetrics(useCase SecurityUseCase, m metrics.BusinessMetrics) SecurityUseCase {
	return &securityUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// record emits the counter and duration for one operation.
func (s *securityUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "security", operation, status)
	s.metrics.RecordDuration(ctx, "security", operation, time.Since(start), status)
}

func (s *securityUseCaseWithMetrics) InitializeSecurity(ctx context.Context, c domain.Credentials, rootUser string, rootSecret []byte) error {
	start := time.Now()
	err := s.next.InitializeSecurity(ctx, c, rootUser, rootSecret)
	s.record(ctx, "initialize_security", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) AuthenticateUser(ctx context.Context, c domain.Credentials, user string, secret []byte) (bool, error) {
	start := time.Now()
	ok, err := s.next.AuthenticateUser(ctx, c, user, secret)
	s.record(ctx, "authenticate_user", start, err)
	return ok, err
}

func (s *securityUseCaseWithMetrics) GetUserAuthorizations(ctx context.Context, c domain.Credentials, user string) (domain.Authorizations, error) {
	start := time.Now()
	auths, err := s.next.GetUserAuthorizations(ctx, c, user)
	s.record(ctx, "get_user_authorizations", start, err)
	return auths, err
}

func (s *securityUseCaseWithMetrics) HasSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	start := time.Now()
	held, err := s.next.HasSystemPermission(ctx, c, user, perm)
	s.record(ctx, "has_system_permission", start, err)
	return held, err
}

func (s *securityUseCaseWithMetrics) HasTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) (bool, error) {
	start := time.Now()
	held, err := s.next.HasTablePermission(ctx, c, user, table, perm)
	s.record(ctx, "has_table_permission", start, err)
	return held, err
}

func (s *securityUseCaseWithMetrics) ListUsers(ctx context.Context, c domain.Credentials) ([]string, error) {
	start := time.Now()
	users, err := s.next.ListUsers(ctx, c)
	s.record(ctx, "list_users", start, err)
	return users, err
}

func (s *securityUseCaseWithMetrics) CanScan(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanScan(ctx, c, table)
	s.record(ctx, "can_scan", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanWrite(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanWrite(ctx, c, table)
	s.record(ctx, "can_write", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanSplitTablet(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanSplitTablet(ctx, c, table)
	s.record(ctx, "can_split_tablet", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanPerformSystemActions(ctx context.Context, c domain.Credentials) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanPerformSystemActions(ctx, c)
	s.record(ctx, "can_perform_system_actions", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanFlush(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanFlush(ctx, c, table)
	s.record(ctx, "can_flush", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanAlterTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanAlterTable(ctx, c, table)
	s.record(ctx, "can_alter_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanCreateTable(ctx context.Context, c domain.Credentials) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanCreateTable(ctx, c)
	s.record(ctx, "can_create_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanRenameTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanRenameTable(ctx, c, table)
	s.record(ctx, "can_rename_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanCloneTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanCloneTable(ctx, c, table)
	s.record(ctx, "can_clone_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanDeleteTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanDeleteTable(ctx, c, table)
	s.record(ctx, "can_delete_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanOnlineOfflineTable(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanOnlineOfflineTable(ctx, c, table)
	s.record(ctx, "can_online_offline_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanMerge(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanMerge(ctx, c, table)
	s.record(ctx, "can_merge", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanDeleteRange(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanDeleteRange(ctx, c, table)
	s.record(ctx, "can_delete_range", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanBulkImport(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanBulkImport(ctx, c, table)
	s.record(ctx, "can_bulk_import", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanCompact(ctx context.Context, c domain.Credentials, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanCompact(ctx, c, table)
	s.record(ctx, "can_compact", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanChangeAuthorizations(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanChangeAuthorizations(ctx, c, user)
	s.record(ctx, "can_change_authorizations", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanChangePassword(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanChangePassword(ctx, c, user)
	s.record(ctx, "can_change_password", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanCreateUser(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanCreateUser(ctx, c, user)
	s.record(ctx, "can_create_user", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanDropUser(ctx context.Context, c domain.Credentials, user string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanDropUser(ctx, c, user)
	s.record(ctx, "can_drop_user", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanGrantSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanGrantSystem(ctx, c, user, perm)
	s.record(ctx, "can_grant_system", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanGrantTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanGrantTable(ctx, c, user, table)
	s.record(ctx, "can_grant_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanRevokeSystem(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanRevokeSystem(ctx, c, user, perm)
	s.record(ctx, "can_revoke_system", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CanRevokeTable(ctx context.Context, c domain.Credentials, user string, table string) (bool, error) {
	start := time.Now()
	allowed, err := s.next.CanRevokeTable(ctx, c, user, table)
	s.record(ctx, "can_revoke_table", start, err)
	return allowed, err
}

func (s *securityUseCaseWithMetrics) CreateUser(ctx context.Context, c domain.Credentials, user string, secret []byte, auths domain.Authorizations) error {
	start := time.Now()
	err := s.next.CreateUser(ctx, c, user, secret, auths)
	s.record(ctx, "create_user", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) DropUser(ctx context.Context, c domain.Credentials, user string) error {
	start := time.Now()
	err := s.next.DropUser(ctx, c, user)
	s.record(ctx, "drop_user", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) ChangePassword(ctx context.Context, c domain.Credentials, user string, secret []byte) error {
	start := time.Now()
	err := s.next.ChangePassword(ctx, c, user, secret)
	s.record(ctx, "change_password", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) ChangeAuthorizations(ctx context.Context, c domain.Credentials, user string, auths domain.Authorizations) error {
	start := time.Now()
	err := s.next.ChangeAuthorizations(ctx, c, user, auths)
	s.record(ctx, "change_authorizations", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) GrantSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error {
	start := time.Now()
	err := s.next.GrantSystemPermission(ctx, c, user, perm)
	s.record(ctx, "grant_system_permission", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) RevokeSystemPermission(ctx context.Context, c domain.Credentials, user string, perm domain.SystemPermission) error {
	start := time.Now()
	err := s.next.RevokeSystemPermission(ctx, c, user, perm)
	s.record(ctx, "revoke_system_permission", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) GrantTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error {
	start := time.Now()
	err := s.next.GrantTablePermission(ctx, c, user, table, perm)
	s.record(ctx, "grant_table_permission", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) RevokeTablePermission(ctx context.Context, c domain.Credentials, user string, table string, perm domain.TablePermission) error {
	start := time.Now()
	err := s.next.RevokeTablePermission(ctx, c, user, table, perm)
	s.record(ctx, "revoke_table_permission", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) DeleteTable(ctx context.Context, c domain.Credentials, table string) error {
	start := time.Now()
	err := s.next.DeleteTable(ctx, c, table)
	s.record(ctx, "delete_table", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) ClearUserCache(ctx context.Context, user string, password, auths, system bool, tables []string) error {
	start := time.Now()
	err := s.next.ClearUserCache(ctx, user, password, auths, system, tables)
	s.record(ctx, "clear_user_cache", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) ClearTableCache(ctx context.Context, table string) error {
	start := time.Now()
	err := s.next.ClearTableCache(ctx, table)
	s.record(ctx, "clear_table_cache", start, err)
	return err
}

func (s *securityUseCaseWithMetrics) CachesToClear(ctx context.Context) (bool, error) {
	start := time.Now()
	pending, err := s.next.CachesToClear(ctx)
	s.record(ctx, "caches_to_clear", start, err)
	return pending, err
}
