package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamstore/access/internal/security/http/dto"
)

func TestUserHandler_Create(t *testing.T) {
	t.Run("root creates a user with labels", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, rootCreds(), http.MethodPost, "/v1/users", dto.CreateUserRequest{
			User:           "alice",
			Secret:         base64.StdEncoding.EncodeToString([]byte("alice-secret")),
			Authorizations: []string{"finance", "public"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, rootCreds(), http.MethodGet, "/v1/users/alice/authorizations", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var response dto.AuthorizationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "alice", response.User)
		assert.Equal(t, []string{"finance", "public"}, response.Authorizations)
	})

	t.Run("duplicate user yields 409", func(t *testing.T) {
		env := newTestEnv(t)
		env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, rootCreds(), http.MethodPost, "/v1/users", dto.CreateUserRequest{
			User:   "alice",
			Secret: base64.StdEncoding.EncodeToString([]byte("other")),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("reserved prefix rejected by validation", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, rootCreds(), http.MethodPost, "/v1/users", dto.CreateUserRequest{
			User:   "!shadow",
			Secret: base64.StdEncoding.EncodeToString([]byte("secret")),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unprivileged caller is denied", func(t *testing.T) {
		env := newTestEnv(t)
		alice := env.addUser(t, "alice", []byte("alice-secret"))

		w := env.do(t, alice, http.MethodPost, "/v1/users", dto.CreateUserRequest{
			User:   "bob",
			Secret: base64.StdEncoding.EncodeToString([]byte("bob-secret")),
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "PERMISSION_DENIED", errorCode(t, w))
	})
}

func TestUserHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", []byte("s"))
	env.addUser(t, "bob", []byte("s"))

	w := env.do(t, rootCreds(), http.MethodGet, "/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.ListUsersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []string{"alice", "bob", "root"}, response.Users)

	// Pagination slices the sorted list.
	w = env.do(t, rootCreds(), http.MethodGet, "/v1/users?offset=1&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []string{"bob"}, response.Users)

	// Bad pagination parameters are rejected.
	w = env.do(t, rootCreds(), http.MethodGet, "/v1/users?limit=0", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUserHandler_Drop(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", []byte("alice-secret"))

	w := env.do(t, rootCreds(), http.MethodDelete, "/v1/users/alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, rootCreds(), http.MethodDelete, "/v1/users/alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_DOESNT_EXIST", errorCode(t, w))
}

func TestUserHandler_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", []byte("old-secret"))

	w := env.do(t, alice, http.MethodPut, "/v1/users/alice/password", dto.ChangePasswordRequest{
		Secret: base64.StdEncoding.EncodeToString([]byte("new-secret")),
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// Old credentials no longer authenticate.
	w = env.do(t, alice, http.MethodGet, "/v1/users/alice/authorizations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "BAD_CREDENTIALS", errorCode(t, w))
}

func TestUserHandler_ChangeAuthorizations(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", []byte("alice-secret"))

	// Self-service label changes are not allowed without alter-user.
	w := env.do(t, alice, http.MethodPut, "/v1/users/alice/authorizations", dto.ChangeAuthorizationsRequest{
		Authorizations: []string{"secret"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, rootCreds(), http.MethodPut, "/v1/users/alice/authorizations", dto.ChangeAuthorizationsRequest{
		Authorizations: []string{"secret", "public"},
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, alice, http.MethodGet, "/v1/users/alice/authorizations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.AuthorizationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []string{"public", "secret"}, response.Authorizations)
}
