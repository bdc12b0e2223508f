package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunDeleteTable removes every user's permissions on a table that is being
// dropped from the store.
func RunDeleteTable(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	writer io.Writer,
	table string,
	format string,
) error {
	logger.Info("deleting table permissions", slog.String("table", table))

	if err := engine.DeleteTable(ctx, creds, table); err != nil {
		return fmt.Errorf("failed to delete table permissions: %w", err)
	}

	logger.Info("table permissions deleted", slog.String("table", table))

	return outputResult(
		writer,
		format,
		map[string]string{"table": table, "status": "permissions_deleted"},
		fmt.Sprintf("Permissions on table %q deleted", table),
	)
}
