package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunDropUser removes a cluster user along with every permission and label
// recorded for them.
func RunDropUser(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	writer io.Writer,
	user string,
	format string,
) error {
	logger.Info("dropping user", slog.String("user", user))

	if err := engine.DropUser(ctx, creds, user); err != nil {
		return fmt.Errorf("failed to drop user: %w", err)
	}

	logger.Info("user dropped", slog.String("user", user))

	return outputResult(
		writer,
		format,
		map[string]string{"user": user, "status": "dropped"},
		fmt.Sprintf("User %q dropped", user),
	)
}
