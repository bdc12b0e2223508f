package http

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	securityDomain "github.com/loamstore/access/internal/security/domain"
	"github.com/loamstore/access/internal/security/http/dto"
)

func TestAuthenticateHandler(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodPost, "/v1/security/authenticate", dto.AuthenticateUserRequest{
			User:   "alice",
			Secret: base64.StdEncoding.EncodeToString([]byte("alice-secret")),
		})

		assert.True(t, decision(t, w))
	})

	t.Run("wrong secret answers false", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodPost, "/v1/security/authenticate", dto.AuthenticateUserRequest{
			User:   "alice",
			Secret: base64.StdEncoding.EncodeToString([]byte("wrong")),
		})

		assert.False(t, decision(t, w))
	})

	t.Run("caller with bad credentials is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, "alice", []byte("alice-secret"))
		impostor := securityDomain.NewCredentials("alice", []byte("wrong"), testInstanceID)

		w := env.do(t, impostor, http.MethodPost, "/v1/security/authenticate", dto.AuthenticateUserRequest{
			User:   "alice",
			Secret: base64.StdEncoding.EncodeToString([]byte("alice-secret")),
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "BAD_CREDENTIALS", errorCode(t, w))
	})

	t.Run("asking about another user requires permission", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))
		env.addUser(t, "bob", []byte("bob-secret"))

		w := env.do(t, alice, http.MethodPost, "/v1/security/authenticate", dto.AuthenticateUserRequest{
			User:   "bob",
			Secret: base64.StdEncoding.EncodeToString([]byte("bob-secret")),
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "PERMISSION_DENIED", errorCode(t, w))
	})

	t.Run("invalid base64 secret in body", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodPost, "/v1/security/authenticate", dto.AuthenticateUserRequest{
			User:   "alice",
			Secret: "not base64!!!",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestInitializeHandler(t *testing.T) {
	t.Run("only the system identity may initialize", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, rootCreds(), http.MethodPost, "/v1/security/initialize", dto.InitializeSecurityRequest{
			RootUser:   "admin",
			RootSecret: base64.StdEncoding.EncodeToString([]byte("admin-secret")),
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "PERMISSION_DENIED", errorCode(t, w))
	})

	t.Run("reserved root name rejected by validation", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, systemCreds(), http.MethodPost, "/v1/security/initialize", dto.InitializeSecurityRequest{
			RootUser:   "!SYSTEM",
			RootSecret: base64.StdEncoding.EncodeToString([]byte("secret")),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTableActionCheckHandler(t *testing.T) {
	t.Run("metadata scan is always allowed", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodGet, "/v1/checks/tables/"+securityDomain.MetadataTableID+"/actions/scan", nil)
		assert.True(t, decision(t, w))
	})

	t.Run("write requires a grant", func(t *testing.T) {
		env := newTestEnv(t)
		env.permissions.AddTable("trades")
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodGet, "/v1/checks/tables/trades/actions/write", nil)
		assert.False(t, decision(t, w))

		w = env.do(t, rootCreds(), http.MethodPut, "/v1/users/alice/permissions/tables/trades/write", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = env.do(t, alice, http.MethodGet, "/v1/checks/tables/trades/actions/write", nil)
		assert.True(t, decision(t, w))
	})

	t.Run("unknown table yields 404 with reason code", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodGet, "/v1/checks/tables/ghost/actions/scan", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "TABLE_DOESNT_EXIST", errorCode(t, w))
	})

	t.Run("unknown action yields 422", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodGet, "/v1/checks/tables/trades/actions/teleport", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSystemActionCheckHandler(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", []byte("alice-secret"))

	w := env.do(t, alice, http.MethodGet, "/v1/checks/actions/create-table", nil)
	assert.False(t, decision(t, w))

	w = env.do(t, rootCreds(), http.MethodGet, "/v1/checks/actions/create-table", nil)
	assert.True(t, decision(t, w))

	w = env.do(t, systemCreds(), http.MethodGet, "/v1/checks/actions/system", nil)
	assert.True(t, decision(t, w))

	w = env.do(t, alice, http.MethodGet, "/v1/checks/actions/fly", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUserActionCheckHandler(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", []byte("alice-secret"))
	env.addUser(t, "bob", []byte("bob-secret"))

	// Self password change is always allowed.
	w := env.do(t, alice, http.MethodGet, "/v1/checks/users/alice/actions/change-password", nil)
	assert.True(t, decision(t, w))

	// Creating users requires the create-user permission.
	w = env.do(t, alice, http.MethodGet, "/v1/checks/users/carol/actions/create", nil)
	assert.False(t, decision(t, w))

	w = env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/carol/actions/create", nil)
	assert.True(t, decision(t, w))

	// Root may drop ordinary users.
	w = env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/bob/actions/drop", nil)
	assert.True(t, decision(t, w))

	// Dropping the root identity is a typed denial, not a false.
	w = env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/"+rootName+"/actions/drop", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(t, w))
}

func TestGrantCheckHandlers(t *testing.T) {
	env := newTestEnv(t)
	env.permissions.AddTable("trades")
	alice := env.addUser(t, "alice", []byte("alice-secret"))
	env.addUser(t, "bob", []byte("bob-secret"))

	t.Run("grant permission gates system grants", func(t *testing.T) {
		w := env.do(t, alice, http.MethodGet, "/v1/checks/users/bob/grants/system/create-table", nil)
		assert.False(t, decision(t, w))

		w = env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/bob/grants/system/create-table", nil)
		assert.True(t, decision(t, w))
	})

	t.Run("the grant permission itself is never grantable", func(t *testing.T) {
		w := env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/bob/grants/system/grant", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "GRANT_INVALID", errorCode(t, w))
	})

	t.Run("table grant checks", func(t *testing.T) {
		w := env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/bob/grants/tables/trades", nil)
		assert.True(t, decision(t, w))

		w = env.do(t, alice, http.MethodGet, "/v1/checks/users/bob/revocations/tables/trades", nil)
		assert.False(t, decision(t, w))
	})

	t.Run("unknown permission yields 422", func(t *testing.T) {
		w := env.do(t, rootCreds(), http.MethodGet, "/v1/checks/users/bob/grants/system/levitate", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
