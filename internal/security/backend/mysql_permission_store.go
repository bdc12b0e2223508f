package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/loamstore/access/internal/database"
	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/domain"
)

// MySQLPermissionStore persists system permissions, table permissions, and
// visibility authorizations in MySQL. Labels are stored as a JSON array since
// MySQL has no native array type.
type MySQLPermissionStore struct {
	db *sql.DB
}

// NewMySQLPermissionStore creates a new MySQLPermissionStore.
func NewMySQLPermissionStore(db *sql.DB) *MySQLPermissionStore {
	return &MySQLPermissionStore{db: db}
}

// GetUserAuthorizations returns the user's visibility labels. A user without
// an authorization record has the empty set.
func (s *MySQLPermissionStore) GetUserAuthorizations(ctx context.Context, user string) (domain.Authorizations, error) {
	querier := database.GetTx(ctx, s.db)

	var raw []byte
	query := `SELECT labels FROM user_authorizations WHERE username = ?`

	err := querier.QueryRowContext(ctx, query, user).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NoAuthorizations, nil
		}
		return nil, apperrors.Wrap(err, "failed to get authorizations")
	}

	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode authorizations")
	}
	return domain.NewAuthorizations(labels...), nil
}

// ChangeAuthorizations replaces the user's visibility labels.
func (s *MySQLPermissionStore) ChangeAuthorizations(ctx context.Context, user string, auths domain.Authorizations) error {
	raw, err := json.Marshal([]string(auths))
	if err != nil {
		return apperrors.Wrap(err, "failed to encode authorizations")
	}

	querier := database.GetTx(ctx, s.db)

	query := `INSERT INTO user_authorizations (username, labels, updated_at)
			  VALUES (?, ?, NOW())
			  ON DUPLICATE KEY UPDATE labels = VALUES(labels), updated_at = NOW()`

	if _, err := querier.ExecContext(ctx, query, user, raw); err != nil {
		return apperrors.Wrap(err, "failed to change authorizations")
	}
	return nil
}

// HasSystemPermission reports whether the user holds the permission.
func (s *MySQLPermissionStore) HasSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	var held bool
	query := `SELECT EXISTS (SELECT 1 FROM system_permissions WHERE username = ? AND permission = ?)`

	if err := querier.QueryRowContext(ctx, query, user, perm.String()).Scan(&held); err != nil {
		return false, apperrors.Wrap(err, "failed to check system permission")
	}
	return held, nil
}

// HasTablePermission reports whether the user holds the permission on the table.
func (s *MySQLPermissionStore) HasTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) (bool, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return false, err
	}

	querier := database.GetTx(ctx, s.db)

	var held bool
	query := `SELECT EXISTS (
				SELECT 1 FROM table_permissions
				WHERE username = ? AND table_id = ? AND permission = ?)`

	if err := querier.QueryRowContext(ctx, query, user, table, perm.String()).Scan(&held); err != nil {
		return false, apperrors.Wrap(err, "failed to check table permission")
	}
	return held, nil
}

// GrantSystemPermission adds a cluster-wide permission. Granting a held
// permission is a no-op.
func (s *MySQLPermissionStore) GrantSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) error {
	querier := database.GetTx(ctx, s.db)

	query := `INSERT IGNORE INTO system_permissions (username, permission, created_at)
			  VALUES (?, ?, NOW())`

	if _, err := querier.ExecContext(ctx, query, user, perm.String()); err != nil {
		return apperrors.Wrap(err, "failed to grant system permission")
	}
	return nil
}

// RevokeSystemPermission removes a cluster-wide permission. Revoking a
// permission the user does not hold is a no-op.
func (s *MySQLPermissionStore) RevokeSystemPermission(ctx context.Context, user string, perm domain.SystemPermission) error {
	querier := database.GetTx(ctx, s.db)

	query := `DELETE FROM system_permissions WHERE username = ? AND permission = ?`

	if _, err := querier.ExecContext(ctx, query, user, perm.String()); err != nil {
		return apperrors.Wrap(err, "failed to revoke system permission")
	}
	return nil
}

// GrantTablePermission adds a table-scoped permission.
func (s *MySQLPermissionStore) GrantTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) error {
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	query := `INSERT IGNORE INTO table_permissions (username, table_id, permission, created_at)
			  VALUES (?, ?, ?, NOW())`

	if _, err := querier.ExecContext(ctx, query, user, table, perm.String()); err != nil {
		return apperrors.Wrap(err, "failed to grant table permission")
	}
	return nil
}

// RevokeTablePermission removes a table-scoped permission.
func (s *MySQLPermissionStore) RevokeTablePermission(ctx context.Context, user string, table string, perm domain.TablePermission) error {
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	query := `DELETE FROM table_permissions WHERE username = ? AND table_id = ? AND permission = ?`

	if _, err := querier.ExecContext(ctx, query, user, table, perm.String()); err != nil {
		return apperrors.Wrap(err, "failed to revoke table permission")
	}
	return nil
}

// InitUser creates an empty permission record for a new user.
func (s *MySQLPermissionStore) InitUser(ctx context.Context, user string) error {
	querier := database.GetTx(ctx, s.db)

	query := `INSERT IGNORE INTO user_authorizations (username, labels, updated_at)
			  VALUES (?, '[]', NOW())`

	if _, err := querier.ExecContext(ctx, query, user); err != nil {
		return apperrors.Wrap(err, "failed to init user permissions")
	}
	return nil
}

// DropUser removes every permission and authorization record for the user.
func (s *MySQLPermissionStore) DropUser(ctx context.Context, user string) error {
	querier := database.GetTx(ctx, s.db)

	statements := []string{
		`DELETE FROM table_permissions WHERE username = ?`,
		`DELETE FROM system_permissions WHERE username = ?`,
		`DELETE FROM user_authorizations WHERE username = ?`,
	}
	for _, stmt := range statements {
		if _, err := querier.ExecContext(ctx, stmt, user); err != nil {
			return apperrors.Wrap(err, "failed to drop user permissions")
		}
	}
	return nil
}

// CleanTablePermissions removes every user's permissions on the table.
func (s *MySQLPermissionStore) CleanTablePermissions(ctx context.Context, table string) error {
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM table_permissions WHERE table_id = ?`, table); err != nil {
		return apperrors.Wrap(err, "failed to clean table permissions")
	}
	return nil
}

// Initialize seeds the bootstrap root identity's permission record.
func (s *MySQLPermissionStore) Initialize(ctx context.Context, rootUser string) error {
	return s.InitUser(ctx, rootUser)
}

// ClearCache is a no-op: the SQL store holds no derived permission data.
func (s *MySQLPermissionStore) ClearCache(_ context.Context, _ string, _, _ bool, _ []string) error {
	return nil
}

// ClearTableCache validates the table and is otherwise a no-op.
func (s *MySQLPermissionStore) ClearTableCache(ctx context.Context, table string) error {
	return s.requireTable(ctx, table)
}

// CachesToClear always reports false for the uncached SQL store.
func (s *MySQLPermissionStore) CachesToClear(_ context.Context) (bool, error) {
	return false, nil
}

// CompatibleWith pairs the store with identity stores of the same family.
func (s *MySQLPermissionStore) CompatibleWith(identities IdentityStore) bool {
	return familiesMatch(s, identities)
}

// StorageFamily identifies the backing storage for compatibility checks.
func (s *MySQLPermissionStore) StorageFamily() string { return "mysql" }

// requireTable returns ErrTableNotFound unless the table is registered.
// The metadata table always exists.
func (s *MySQLPermissionStore) requireTable(ctx context.Context, table string) error {
	if table == domain.MetadataTableID {
		return nil
	}

	querier := database.GetTx(ctx, s.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tables WHERE table_id = ?)`

	if err := querier.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
		return apperrors.Wrap(err, "failed to check table existence")
	}
	if !exists {
		return ErrTableNotFound
	}
	return nil
}
