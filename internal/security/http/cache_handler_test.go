package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamstore/access/internal/security/http/dto"
)

func TestCacheHandler_Status(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, rootCreds(), http.MethodGet, "/v1/cache/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.CacheStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	// Memory backends never hold sweepable entries.
	assert.False(t, response.Pending)
}

func TestCacheHandler_ClearUser(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", []byte("alice-secret"))

	w := env.do(t, rootCreds(), http.MethodPost, "/v1/cache/users/alice/clear", dto.ClearUserCacheRequest{
		Password:       true,
		Authorizations: true,
		System:         true,
		Tables:         []string{"trades"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}

func TestCacheHandler_ClearTable(t *testing.T) {
	env := newTestEnv(t)
	env.permissions.AddTable("trades")

	w := env.do(t, rootCreds(), http.MethodPost, "/v1/cache/tables/trades/clear", nil)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}
