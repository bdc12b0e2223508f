package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/loamstore/access/cmd/app/commands"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

func getUserCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-user",
			Usage: "Create a cluster user",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username to create",
				},
				&cli.StringFlag{
					Name:    "secret",
					Aliases: []string{"s"},
					Usage:   "Secret for the new user (omit to be prompted)",
				},
				&cli.StringFlag{
					Name:    "authorizations",
					Aliases: []string{"a"},
					Usage:   "Comma-separated visibility labels for the new user",
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
					return commands.RunCreateUser(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO(),
						cmd.String("user"),
						cmd.String("secret"),
						cmd.String("authorizations"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "drop-user",
			Usage: "Remove a cluster user and their permissions",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username to drop",
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
					return commands.RunDropUser(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("user"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "change-password",
			Usage: "Replace a user's secret",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username whose secret changes",
				},
				&cli.StringFlag{
					Name:    "secret",
					Aliases: []string{"s"},
					Usage:   "New secret (omit to be prompted)",
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
					return commands.RunChangePassword(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO(),
						cmd.String("user"),
						cmd.String("secret"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "change-authorizations",
			Usage: "Replace a user's visibility labels",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "Username whose labels change",
				},
				&cli.StringFlag{
					Name:    "authorizations",
					Aliases: []string{"a"},
					Usage:   "Comma-separated visibility labels (empty clears all)",
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
					return commands.RunChangeAuthorizations(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("user"),
						cmd.String("authorizations"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "list-users",
			Usage: "List every known username",
			Flags: []cli.Flag{
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
					return commands.RunListUsers(
						ctx,
						engine,
						creds,
						logger,
						commands.DefaultIO().Writer,
						cmd.String("format"),
					)
				})
			},
		},
	}
}
