package backend

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/loamstore/access/internal/database"
	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/security/service"
)

// MySQLIdentityStore persists identities in MySQL. Secrets are stored
// Argon2id-hashed; the plain secret never touches the database.
type MySQLIdentityStore struct {
	db      *sql.DB
	secrets service.SecretService
}

// NewMySQLIdentityStore creates a new MySQLIdentityStore.
func NewMySQLIdentityStore(db *sql.DB, secrets service.SecretService) *MySQLIdentityStore {
	return &MySQLIdentityStore{db: db, secrets: secrets}
}

// Authenticate verifies the secret against the stored hash.
// Unknown users authenticate as false without error.
func (s *MySQLIdentityStore) Authenticate(ctx context.Context, user string, secret []byte, _ string) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	var hashed string
	query := `SELECT secret_hash FROM users WHERE username = ?`

	err := querier.QueryRowContext(ctx, query, user).Scan(&hashed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.Wrap(err, "failed to load credential")
	}

	return s.secrets.CompareSecret(secret, hashed), nil
}

// UserExists reports whether the user has an identity record.
func (s *MySQLIdentityStore) UserExists(ctx context.Context, user string) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`

	if err := querier.QueryRowContext(ctx, query, user).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check user existence")
	}
	return exists, nil
}

// CreateUser stores a new identity record with a hashed secret.
func (s *MySQLIdentityStore) CreateUser(ctx context.Context, user string, secret []byte) error {
	hashed, err := s.secrets.HashSecret(secret)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	query := `INSERT INTO users (username, secret_hash, created_at, updated_at)
			  VALUES (?, ?, NOW(), NOW())`

	if _, err := querier.ExecContext(ctx, query, user, hashed); err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "user %q already exists", user)
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// DropUser removes the identity record.
func (s *MySQLIdentityStore) DropUser(ctx context.Context, user string) error {
	querier := database.GetTx(ctx, s.db)

	res, err := querier.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, user)
	if err != nil {
		return apperrors.Wrap(err, "failed to drop user")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to drop user")
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ChangePassword replaces the user's stored secret hash.
func (s *MySQLIdentityStore) ChangePassword(ctx context.Context, user string, secret []byte) error {
	hashed, err := s.secrets.HashSecret(secret)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	query := `UPDATE users SET secret_hash = ?, updated_at = NOW() WHERE username = ?`

	res, err := querier.ExecContext(ctx, query, hashed, user)
	if err != nil {
		return apperrors.Wrap(err, "failed to change password")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to change password")
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns every known username ordered by name.
func (s *MySQLIdentityStore) ListUsers(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, s.db)

	rows, err := querier.QueryContext(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	return users, nil
}

// Initialize seeds the bootstrap root identity.
func (s *MySQLIdentityStore) Initialize(ctx context.Context, rootUser string, rootSecret []byte) error {
	return s.CreateUser(ctx, rootUser, rootSecret)
}

// ClearCache is a no-op: the SQL store holds no derived credential data.
func (s *MySQLIdentityStore) ClearCache(_ context.Context, _ string) error {
	return nil
}

// CachesToClear always reports false for the uncached SQL store.
func (s *MySQLIdentityStore) CachesToClear(_ context.Context) (bool, error) {
	return false, nil
}

// CompatibleWith pairs the store with permission stores of the same family.
func (s *MySQLIdentityStore) CompatibleWith(permissions PermissionStore) bool {
	return familiesMatch(s, permissions)
}

// StorageFamily identifies the backing storage for compatibility checks.
func (s *MySQLIdentityStore) StorageFamily() string { return "mysql" }

// isMySQLDuplicateEntry checks if the error is a MySQL unique constraint violation.
func isMySQLDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "error 1062")
}
