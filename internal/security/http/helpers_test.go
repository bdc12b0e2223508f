package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/loamstore/access/internal/cluster"
	"github.com/loamstore/access/internal/security/backend"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

const (
	testInstanceID = "loam-test-instance"
	rootName       = "root"
)

var (
	testSystemSecret = []byte("system-secret")
	rootSecret       = []byte("root-secret")
)

// TestMain sets Gin to test mode and verifies the rate limiter cleanup
// goroutines exit with their contexts.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

// testEnv bundles a memory-backed engine behind a fully routed gin engine.
type testEnv struct {
	router      *gin.Engine
	engine      securityUseCase.SecurityUseCase
	permissions *backend.MemoryPermissionStore
}

// newTestEnv builds a bootstrapped engine over memory backends and mounts
// every handler on the routes the server registers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	identities := backend.NewMemoryIdentityStore()
	permissions := backend.NewMemoryPermissionStore()
	registry := cluster.NewStaticRegistry(testInstanceID, "")

	engine, err := securityUseCase.NewSecurityUseCase(
		context.Background(), identities, permissions, registry, nil, testSystemSecret,
	)
	require.NoError(t, err)

	err = engine.InitializeSecurity(context.Background(), systemCreds(), rootName, rootSecret)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	security := NewSecurityHandler(engine, logger)
	users := NewUserHandler(engine, logger)
	perms := NewPermissionHandler(engine, logger)
	cache := NewCacheHandler(engine, logger)

	router := gin.New()
	v1 := router.Group("/v1", CredentialsMiddleware(logger))
	v1.POST("/security/initialize", security.InitializeHandler)
	v1.POST("/security/authenticate", security.AuthenticateHandler)
	v1.GET("/checks/actions/:action", security.SystemActionCheckHandler)
	v1.GET("/checks/tables/:table/actions/:action", security.TableActionCheckHandler)
	v1.GET("/checks/users/:user/actions/:action", security.UserActionCheckHandler)
	v1.GET("/checks/users/:user/grants/system/:permission", security.GrantSystemCheckHandler)
	v1.GET("/checks/users/:user/grants/tables/:table", security.GrantTableCheckHandler)
	v1.GET("/checks/users/:user/revocations/system/:permission", security.RevokeSystemCheckHandler)
	v1.GET("/checks/users/:user/revocations/tables/:table", security.RevokeTableCheckHandler)
	v1.GET("/users", users.ListHandler)
	v1.POST("/users", users.CreateHandler)
	v1.DELETE("/users/:user", users.DropHandler)
	v1.PUT("/users/:user/password", users.ChangePasswordHandler)
	v1.GET("/users/:user/authorizations", users.GetAuthorizationsHandler)
	v1.PUT("/users/:user/authorizations", users.ChangeAuthorizationsHandler)
	v1.GET("/users/:user/permissions/system/:permission", perms.HasSystemPermissionHandler)
	v1.PUT("/users/:user/permissions/system/:permission", perms.GrantSystemPermissionHandler)
	v1.DELETE("/users/:user/permissions/system/:permission", perms.RevokeSystemPermissionHandler)
	v1.GET("/users/:user/permissions/tables/:table/:permission", perms.HasTablePermissionHandler)
	v1.PUT("/users/:user/permissions/tables/:table/:permission", perms.GrantTablePermissionHandler)
	v1.DELETE("/users/:user/permissions/tables/:table/:permission", perms.RevokeTablePermissionHandler)
	v1.DELETE("/tables/:table/permissions", perms.DeleteTableHandler)
	v1.GET("/cache/status", cache.StatusHandler)
	v1.POST("/cache/users/:user/clear", cache.ClearUserHandler)
	v1.POST("/cache/tables/:table/clear", cache.ClearTableHandler)

	return &testEnv{router: router, engine: engine, permissions: permissions}
}

func systemCreds() securityDomain.Credentials {
	return securityDomain.NewCredentials(securityDomain.SystemUsername, testSystemSecret, testInstanceID)
}

func rootCreds() securityDomain.Credentials {
	return securityDomain.NewCredentials(rootName, rootSecret, testInstanceID)
}

// addUser creates a user through the engine as root and returns their
// credentials.
func (e *testEnv) addUser(t *testing.T, user string, secret []byte) securityDomain.Credentials {
	t.Helper()
	err := e.engine.CreateUser(context.Background(), rootCreds(), user, secret, nil)
	require.NoError(t, err)
	return securityDomain.NewCredentials(user, secret, testInstanceID)
}

// do performs a request with the given credentials in the headers.
func (e *testEnv) do(t *testing.T, creds securityDomain.Credentials, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderPrincipal, creds.User)
	req.Header.Set(HeaderSecret, base64.StdEncoding.EncodeToString(creds.Secret))
	req.Header.Set(HeaderInstance, creds.InstanceID)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decision unmarshals the allowed flag from a decision response.
func decision(t *testing.T, w *httptest.ResponseRecorder) bool {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Allowed bool `json:"allowed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Allowed
}

// errorCode unmarshals the reason code from an error response.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var response struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Code
}
