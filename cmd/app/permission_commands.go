package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/loamstore/access/cmd/app/commands"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

func getPermissionCommands() []*cli.Command {
	formatFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: 'text' or 'json'",
		}
	}

	return []*cli.Command{
		{
			Name:  "grant-system",
			Usage: "Grant a cluster-wide permission to a user",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Target username",
				},
				&cli.StringFlag{
					Name:     "permission",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "System permission (e.g., create-table, drop-table, alter-table, system)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					return commands.RunGrantSystemPermission(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("user"),
						cmd.String("permission"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "revoke-system",
			Usage: "Revoke a cluster-wide permission from a user",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Target username",
				},
				&cli.StringFlag{
					Name:     "permission",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "System permission to revoke",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					return commands.RunRevokeSystemPermission(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("user"),
						cmd.String("permission"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "grant-table",
			Usage: "Grant a table-scoped permission to a user",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Target username",
				},
				&cli.StringFlag{
					Name:     "table",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Table identifier",
				},
				&cli.StringFlag{
					Name:     "permission",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Table permission (e.g., read, write, bulk-import, alter-table, grant, drop-table)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					return commands.RunGrantTablePermission(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("user"),
						cmd.String("table"),
						cmd.String("permission"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "revoke-table",
			Usage: "Revoke a table-scoped permission from a user",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Target username",
				},
				&cli.StringFlag{
					Name:     "table",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Table identifier",
				},
				&cli.StringFlag{
					Name:     "permission",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Table permission to revoke",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					return commands.RunRevokeTablePermission(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("user"),
						cmd.String("table"),
						cmd.String("permission"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "delete-table",
			Usage: "Remove every user's permissions on a dropped table",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "table",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Table identifier",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return adminAction(ctx, func(
					ctx context.Context,
					engine securityUseCase.SecurityUseCase,
					creds securityDomain.Credentials,
					logger *slog.Logger,
				) error {
					return commands.RunDeleteTable(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("table"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
