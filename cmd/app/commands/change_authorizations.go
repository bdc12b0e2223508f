package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunChangeAuthorizations replaces a user's visibility labels with the given
// comma-separated set. An empty set clears every label.
func RunChangeAuthorizations(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	writer io.Writer,
	user string,
	labelsCSV string,
	format string,
) error {
	auths := securityDomain.NewAuthorizations(parseLabels(labelsCSV)...)

	logger.Info("changing authorizations",
		slog.String("user", user),
		slog.Int("labels", len(auths)),
	)

	if err := engine.ChangeAuthorizations(ctx, creds, user, auths); err != nil {
		return fmt.Errorf("failed to change authorizations: %w", err)
	}

	logger.Info("authorizations changed", slog.String("user", user))

	return outputResult(
		writer,
		format,
		map[string]any{"user": user, "authorizations": auths},
		fmt.Sprintf("Authorizations for user %q set to [%s]", user, auths.String()),
	)
}
