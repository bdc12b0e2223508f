package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunRevokeSystemPermission revokes a cluster-wide permission from a user.
func RunRevokeSystemPermission(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	writer io.Writer,
	user string,
	permission string,
	format string,
) error {
	perm, ok := securityDomain.ParseSystemPermission(permission)
	if !ok {
		return fmt.Errorf("unknown system permission: %s", permission)
	}

	logger.Info("revoking system permission",
		slog.String("user", user),
		slog.String("permission", string(perm)),
	)

	if err := engine.RevokeSystemPermission(ctx, creds, user, perm); err != nil {
		return fmt.Errorf("failed to revoke system permission: %w", err)
	}

	return outputResult(
		writer,
		format,
		map[string]string{"user": user, "permission": string(perm), "status": "revoked"},
		fmt.Sprintf("Revoked system permission %s from user %q", perm, user),
	)
}

// RunRevokeTablePermission revokes a table-scoped permission from a user.
func RunRevokeTablePermission(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	writer io.Writer,
	user string,
	table string,
	permission string,
	format string,
) error {
	perm, ok := securityDomain.ParseTablePermission(permission)
	if !ok {
		return fmt.Errorf("unknown table permission: %s", permission)
	}

	logger.Info("revoking table permission",
		slog.String("user", user),
		slog.String("table", table),
		slog.String("permission", string(perm)),
	)

	if err := engine.RevokeTablePermission(ctx, creds, user, table, perm); err != nil {
		return fmt.Errorf("failed to revoke table permission: %w", err)
	}

	return outputResult(
		writer,
		format,
		map[string]string{
			"user":       user,
			"table":      table,
			"permission": string(perm),
			"status":     "revoked",
		},
		fmt.Sprintf("Revoked table permission %s on %q from user %q", perm, table, user),
	)
}
