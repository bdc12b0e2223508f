package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunListUsers prints every known username.
func RunListUsers(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	users, err := engine.ListUsers(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	logger.Info("listed users", slog.Int("count", len(users)))

	var text strings.Builder
	text.WriteString(fmt.Sprintf("%d user(s):", len(users)))
	for _, user := range users {
		text.WriteString("\n  ")
		text.WriteString(user)
	}

	return outputResult(
		writer,
		format,
		map[string]any{"users": users},
		text.String(),
	)
}
