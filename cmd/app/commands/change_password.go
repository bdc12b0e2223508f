package commands

import (
	"context"
	"fmt"
	"log/slog"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunChangePassword replaces a user's secret. Prompts for the new secret when
// it was not given as a flag.
func RunChangePassword(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	tuple IOTuple,
	user string,
	secret string,
	format string,
) error {
	logger.Info("changing password", slog.String("user", user))

	if secret == "" {
		var err error
		secret, err = promptSecret(tuple, "new secret")
		if err != nil {
			return err
		}
	}

	if err := engine.ChangePassword(ctx, creds, user, []byte(secret)); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	logger.Info("password changed", slog.String("user", user))

	return outputResult(
		tuple.Writer,
		format,
		map[string]string{"user": user, "status": "password_changed"},
		fmt.Sprintf("Password changed for user %q", user),
	)
}
