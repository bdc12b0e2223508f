package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunGrantSystemPermission grants a cluster-wide permission to a user.
func RunGrantSystemPermission(
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

	logger.Info("granting system permission",
		slog.String("user", user),
		slog.String("permission", string(perm)),
	)

	if err := engine.GrantSystemPermission(ctx, creds, user, perm); err != nil {
		return fmt.Errorf("failed to grant system permission: %w", err)
	}

	return outputResult(
		writer,
		format,
		map[string]string{"user": user, "permission": string(perm), "status": "granted"},
		fmt.Sprintf("Granted system permission %s to user %q", perm, user),
	)
}

// RunGrantTablePermission grants a table-scoped permission to a user.
func RunGrantTablePermission(
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

	logger.Info("granting table permission",
		slog.String("user", user),
		slog.String("table", table),
		slog.String("permission", string(perm)),
	)

	if err := engine.GrantTablePermission(ctx, creds, user, table, perm); err != nil {
		return fmt.Errorf("failed to grant table permission: %w", err)
	}

	return outputResult(
		writer,
		format,
		map[string]string{
			"user":       user,
			"table":      table,
			"permission": string(perm),
			"status":     "granted",
		},
		fmt.Sprintf("Granted table permission %s on %q to user %q", perm, table, user),
	)
}
