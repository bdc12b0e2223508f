package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/loamstore/access/internal/app"
	"github.com/loamstore/access/internal/config"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"

	"github.com/loamstore/access/cmd/app/commands"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getUserCommands()...)
	cmds = append(cmds, getPermissionCommands()...)
	return cmds
}

// adminAction runs a command body with the engine and the system identity's
// credentials, tearing the container down afterwards.
func adminAction(
	ctx context.Context,
	body func(
		ctx context.Context,
		engine securityUseCase.SecurityUseCase,
		creds securityDomain.Credentials,
		logger *slog.Logger,
	) error,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer func() { _ = container.Shutdown(ctx) }()

	engine, err := container.SecurityEngine()
	if err != nil {
		return err
	}

	registry, err := container.ClusterRegistry()
	if err != nil {
		return err
	}

	creds, err := commands.SystemCredentials(ctx, registry, cfg.SystemSecret)
	if err != nil {
		return err
	}

	return body(ctx, engine, creds, logger)
}
