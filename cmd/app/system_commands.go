package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/loamstore/access/cmd/app/commands"
	"github.com/loamstore/access/internal/app"
	"github.com/loamstore/access/internal/config"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "init-security",
			Usage: "Seed the bootstrap root identity (run once per cluster)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "root-user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username of the bootstrap superuser",
				},
				&cli.StringFlag{
					Name:    "root-secret",
					Aliases: []string{"s"},
					Usage:   "Secret for the bootstrap superuser (omit to be prompted)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					return commands.RunInitSecurity(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO(),
						cmd.String("root-user"),
						cmd.String("root-secret"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "clear-cache",
			Usage: "Clear cached credential and permission entries on this node",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "user",
					Usage: "Clear entries for this user",
				},
				&cli.StringFlag{
					Name:  "table",
					Usage: "Clear permission entries scoped to this table",
				},
				&cli.BoolFlag{
					Name:  "password",
					Value: true,
					Usage: "Clear the user's cached credential",
				},
				&cli.BoolFlag{
					Name:  "auths",
					Value: true,
					Usage: "Clear the user's cached visibility labels",
				},
				&cli.BoolFlag{
					Name:  "system",
					Value: true,
					Usage: "Clear the user's cached system permissions",
				},
				&cli.StringSliceFlag{
					Name:  "tables",
					Usage: "Clear the user's cached permissions on these tables",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					writer := commands.DefaultIO().Writer

					if table := cmd.String("table"); table != "" {
						return commands.RunClearTableCache(
							ctx, engine, logger, writer, table, cmd.String("format"),
						)
					}
					if user := cmd.String("user"); user != "" {
						return commands.RunClearUserCache(
							ctx,
							engine,
							logger,
							writer,
							user,
							cmd.Bool("password"),
							cmd.Bool("auths"),
							cmd.Bool("system"),
							cmd.StringSlice("tables"),
							cmd.String("format"),
						)
					}
					return commands.RunCacheStatus(ctx, engine, writer, cmd.String("format"))
				})
			},
		},
	}
}
