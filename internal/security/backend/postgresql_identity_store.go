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

// PostgreSQLIdentityStore persists identities in PostgreSQL. Secrets are
// stored Argon2id-hashed; the plain secret never touches the database.
type PostgreSQLIdentityStore struct {
	db      *sql.DB
	secrets service.SecretService
}

// NewPostgreSQLIdentityStore creates a new PostgreSQLIdentityStore.
func NewPostgreSQLIdentityStore(db *sql.DB, secrets service.SecretService) *PostgreSQLIdentityStore {
	return &PostgreSQLIdentityStore{db: db, secrets: secrets}
}

// Authenticate verifies the secret against the stored hash.
// Unknown users authenticate as false without error.
func (s *PostgreSQLIdentityStore) Authenticate(ctx context.Context, user string, secret []byte, _ string) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	var hashed string
	query := `SELECT secret_hash FROM users WHERE username = $1`

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
func (s *PostgreSQLIdentityStore) UserExists(ctx context.Context, user string) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`

	if err := querier.QueryRowContext(ctx, query, user).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check user existence")
	}
	return exists, nil
}

// CreateUser stores a new identity record with a hashed secret.
func (s *PostgreSQLIdentityStore) CreateUser(ctx context.Context, user string, secret []byte) error {
	hashed, err := s.secrets.HashSecret(secret)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	query := `INSERT INTO users (username, secret_hash, created_at, updated_at)
			  VALUES ($1, $2, NOW(), NOW())`

	if _, err := querier.ExecContext(ctx, query, user, hashed); err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "user %q already exists", user)
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// DropUser removes the identity record.
func (s *PostgreSQLIdentityStore) DropUser(ctx context.Context, user string) error {
	querier := database.GetTx(ctx, s.db)

	res, err := querier.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, user)
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
func (s *PostgreSQLIdentityStore) ChangePassword(ctx context.Context, user string, secret []byte) error {
	hashed, err := s.secrets.HashSecret(secret)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, s.db)

	query := `UPDATE users SET secret_hash = $2, updated_at = NOW() WHERE username = $1`

	res, err := querier.ExecContext(ctx, query, user, hashed)
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
func (s *PostgreSQLIdentityStore) ListUsers(ctx context.Context) ([]string, error) {
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

// Initialize seeds the bootstrap root identity. Creating the same root twice
// reports a conflict, which the bootstrap flow treats as already initialized.
func (s *PostgreSQLIdentityStore) Initialize(ctx context.Context, rootUser string, rootSecret []byte) error {
	return s.CreateUser(ctx, rootUser, rootSecret)
}

// ClearCache is a no-op: the SQL store holds no derived credential data.
func (s *PostgreSQLIdentityStore) ClearCache(_ context.Context, _ string) error {
	return nil
}

// CachesToClear always reports false for the uncached SQL store.
func (s *PostgreSQLIdentityStore) CachesToClear(_ context.Context) (bool, error) {
	return false, nil
}

// CompatibleWith pairs the store with permission stores of the same family.
func (s *PostgreSQLIdentityStore) CompatibleWith(permissions PermissionStore) bool {
	return familiesMatch(s, permissions)
}

// StorageFamily identifies the backing storage for compatibility checks.
func (s *PostgreSQLIdentityStore) StorageFamily() string { return "postgresql" }

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
