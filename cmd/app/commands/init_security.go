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

// RunInitSecurity seeds the bootstrap root identity. It runs as the internal
// system identity and is intended to be executed once per cluster lifetime,
// right after the first migration.
func RunInitSecurity(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	creds securityDomain.Credentials,
	logger *slog.Logger,
	tuple IOTuple,
	rootUser string,
	rootSecret string,
	format string,
) error {
	if err := validation.Validate(rootUser, validation.Required, customValidation.Username); err != nil {
		return fmt.Errorf("invalid root user name: %w", err)
	}

	logger.Info("initializing cluster security", slog.String("root_user", rootUser))

	if rootSecret == "" {
		var err error
		rootSecret, err = promptSecret(tuple, "root secret")
		if err != nil {
			return err
		}
	}

	if err := engine.InitializeSecurity(ctx, creds, rootUser, []byte(rootSecret)); err != nil {
		return fmt.Errorf("failed to initialize security: %w", err)
	}

	logger.Info("cluster security initialized", slog.String("root_user", rootUser))

	return outputResult(
		tuple.Writer,
		format,
		map[string]string{"root_user": rootUser, "status": "initialized"},
		fmt.Sprintf("Cluster security initialized with root user %q", rootUser),
	)
}
