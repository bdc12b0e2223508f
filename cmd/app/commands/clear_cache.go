package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// RunClearUserCache drops a user's cached credential and permission entries
// on this node. The password, auths, and system flags select which entries
// are cleared; tables scopes the table-permission entries.
func RunClearUserCache(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	logger *slog.Logger,
	writer io.Writer,
	user string,
	password, auths, system bool,
	tables []string,
	format string,
) error {
	logger.Info("clearing user cache",
		slog.String("user", user),
		slog.Bool("password", password),
		slog.Bool("auths", auths),
		slog.Bool("system", system),
		slog.Int("tables", len(tables)),
	)

	if err := engine.ClearUserCache(ctx, user, password, auths, system, tables); err != nil {
		return fmt.Errorf("failed to clear user cache: %w", err)
	}

	return outputResult(
		writer,
		format,
		map[string]string{"user": user, "status": "cache_cleared"},
		fmt.Sprintf("Cache cleared for user %q", user),
	)
}

// RunClearTableCache drops every cached permission entry scoped to a table
// on this node.
func RunClearTableCache(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	logger *slog.Logger,
	writer io.Writer,
	table string,
	format string,
) error {
	logger.Info("clearing table cache", slog.String("table", table))

	if err := engine.ClearTableCache(ctx, table); err != nil {
		return fmt.Errorf("failed to clear table cache: %w", err)
	}

	return outputResult(
		writer,
		format,
		map[string]string{"table": table, "status": "cache_cleared"},
		fmt.Sprintf("Cache cleared for table %q", table),
	)
}

// RunCacheStatus reports whether either backend still holds cache entries an
// explicit sweep could clear.
func RunCacheStatus(
	ctx context.Context,
	engine securityUseCase.SecurityUseCase,
	writer io.Writer,
	format string,
) error {
	pending, err := engine.CachesToClear(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache status: %w", err)
	}

	text := "No cache entries pending"
	if pending {
		text = "Cache entries pending invalidation"
	}

	return outputResult(
		writer,
		format,
		map[string]bool{"pending": pending},
		text,
	)
}
