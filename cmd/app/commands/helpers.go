// Package commands contains CLI command implementations for the application.
package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"github.com/loamstore/access/internal/app"
	"github.com/loamstore/access/internal/cluster"
	securityDomain "github.com/loamstore/access/internal/security/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// SystemCredentials builds the internal system identity's credentials for
// administrative commands. The instance id comes from the cluster registry so
// the credentials pass the engine's instance check.
func SystemCredentials(
	ctx context.Context,
	registry cluster.Registry,
	systemSecret string,
) (securityDomain.Credentials, error) {
	instanceID, err := registry.InstanceID(ctx)
	if err != nil {
		return securityDomain.Credentials{}, fmt.Errorf("failed to resolve instance id: %w", err)
	}
	return securityDomain.NewCredentials(
		securityDomain.SystemUsername,
		[]byte(systemSecret),
		instanceID,
	), nil
}

// promptSecret reads a secret from the command's input when it was not
// provided as a flag.
func promptSecret(tuple IOTuple, label string) (string, error) {
	_, _ = fmt.Fprintf(tuple.Writer, "%s: ", label)

	reader := bufio.NewReader(tuple.Reader)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}

	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", fmt.Errorf("%s cannot be empty", label)
	}
	return secret, nil
}

// parseLabels splits a comma-separated list of visibility labels, dropping
// empty entries.
func parseLabels(csv string) []string {
	var labels []string
	for _, label := range strings.Split(csv, ",") {
		label = strings.TrimSpace(label)
		if label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// outputResult writes a command result in text or JSON format.
func outputResult(writer io.Writer, format string, result any, text string) error {
	if format == "json" {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	}
	_, _ = fmt.Fprintln(writer, text)
	return nil
}
