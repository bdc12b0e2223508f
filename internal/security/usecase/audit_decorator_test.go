package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamstore/access/internal/security/domain"
)

// newAuditedEngine wraps a memory-backed engine with an audit logger
// writing JSON lines into the returned buffer.
func newAuditedEngine(t *testing.T) (SecurityUseCase, *bytes.Buffer) {
	t.Helper()

	engine, _ := newTestEngine(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewAuditedSecurityUseCase(engine, logger), &buf
}

// auditEntries decodes every JSON log line in the buffer.
func auditEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestAuditDecorator_LogsMutations(t *testing.T) {
	ctx := context.Background()
	engine, buf := newAuditedEngine(t)

	err := engine.CreateUser(ctx, rootCreds(), "audited-user", []byte("secret"), nil)
	require.NoError(t, err)

	entries := auditEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "security operation succeeded", entries[0]["msg"])
	assert.Equal(t, "create_user", entries[0]["operation"])
	assert.Equal(t, rootName, entries[0]["caller"])
	assert.Equal(t, "audited-user", entries[0]["user"])
}

func TestAuditDecorator_LogsFailedMutations(t *testing.T) {
	ctx := context.Background()
	engine, buf := newAuditedEngine(t)

	err := engine.DropUser(ctx, rootCreds(), rootName)
	require.Error(t, err)

	entries := auditEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "security operation failed", entries[0]["msg"])
	assert.Equal(t, "drop_user", entries[0]["operation"])
	assert.Contains(t, entries[0]["error"], "PERMISSION_DENIED")
}

func TestAuditDecorator_LogsDeniedChecks(t *testing.T) {
	ctx := context.Background()
	engine, buf := newAuditedEngine(t)

	err := engine.CreateUser(ctx, rootCreds(), "plain-user", []byte("secret"), nil)
	require.NoError(t, err)
	buf.Reset()

	plain := domain.NewCredentials("plain-user", []byte("secret"), testInstanceID)
	allowed, err := engine.CanCreateTable(ctx, plain)
	require.NoError(t, err)
	require.False(t, allowed)

	entries := auditEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "security check denied", entries[0]["msg"])
	assert.Equal(t, "can_create_table", entries[0]["operation"])
	assert.Equal(t, "plain-user", entries[0]["caller"])
}

func TestAuditDecorator_SilentOnAllowedChecks(t *testing.T) {
	ctx := context.Background()
	engine, buf := newAuditedEngine(t)

	allowed, err := engine.CanScan(ctx, rootCreds(), domain.MetadataTableID)
	require.NoError(t, err)
	require.True(t, allowed)

	assert.Empty(t, buf.String())
}
