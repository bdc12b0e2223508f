package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jellydator/validation"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
	customValidation "github.com/loamstore/access/internal/validation"
)

// RunCreateUser creates a cluster user with an optional initial set of
// visibility labels. Prompts for the secret when it was not given as a flag.
func RunCreateUser(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	tuple IOTuple,
	user string,
	secret string,
	labelsCSV string,
	format string,
) error {
	if err := validation.Validate(user, validation.Required, customValidation.Username); err != nil {
		return fmt.Errorf("invalid user name: %w", err)
	}

	logger.Info("creating user", slog.String("user", user))

	if secret == "" {
		var err error
		secret, err = promptSecret(tuple, "user secret")
		if err != nil {
			return err
		}
	}

	auths := securityDomain.NewAuthorizations(parseLabels(labelsCSV)...)

	if err := engine.CreateUser(ctx, creds, user, []byte(secret), auths); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user created",
		slog.String("user", user),
		slog.Int("authorizations", len(auths)),
	)

	return outputResult(
		tuple.Writer,
		format,
		map[string]any{"user": user, "authorizations": auths},
		fmt.Sprintf("User %q created", user),
	)
}
