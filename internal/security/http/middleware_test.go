package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	securityDomain "github.com/loamstore/access/internal/security/domain"
)

func newMiddlewareRouter(extra ...gin.HandlerFunc) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	handlers := append([]gin.HandlerFunc{CredentialsMiddleware(logger)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		creds, ok := GetCredentials(c.Request.Context())
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "credentials missing from context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": creds.User, "instance": creds.InstanceID})
	})
	router.GET("/probe", handlers...)
	return router
}

func TestCredentialsMiddleware(t *testing.T) {
	t.Run("decodes headers into context", func(t *testing.T) {
		router := newMiddlewareRouter()

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderPrincipal, "alice")
		req.Header.Set(HeaderSecret, "c2VjcmV0")
		req.Header.Set(HeaderInstance, "loam-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user":"alice"`)
		assert.Contains(t, w.Body.String(), `"instance":"loam-1"`)
	})

	t.Run("missing principal yields 401", func(t *testing.T) {
		router := newMiddlewareRouter()

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderInstance, "loam-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing instance yields 401", func(t *testing.T) {
		router := newMiddlewareRouter()

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderPrincipal, "alice")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("secret that is not base64 yields 401", func(t *testing.T) {
		router := newMiddlewareRouter()

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderPrincipal, "alice")
		req.Header.Set(HeaderSecret, "not base64!!!")
		req.Header.Set(HeaderInstance, "loam-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty secret header is allowed", func(t *testing.T) {
		// System processes may present empty secrets; the engine rejects
		// them, not the transport.
		router := newMiddlewareRouter()

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderPrincipal, "alice")
		req.Header.Set(HeaderInstance, "loam-1")
		req.Header.Set(HeaderSecret, "")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPrincipalRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := newMiddlewareRouter(PrincipalRateLimitMiddleware(t.Context(), 1, 1, logger))

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderPrincipal, user)
		req.Header.Set(HeaderSecret, "c2VjcmV0")
		req.Header.Set(HeaderInstance, "loam-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// First request consumes the burst, the second is rejected.
	assert.Equal(t, http.StatusOK, send("alice").Code)

	w := send("alice")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Another principal has an independent bucket.
	assert.Equal(t, http.StatusOK, send("bob").Code)
}

func TestAuthnRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.POST("/authn", AuthnRateLimitMiddleware(t.Context(), 1, 1, logger), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/authn", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusTooManyRequests, send().Code)
}

func TestGetCredentials_Empty(t *testing.T) {
	_, ok := GetCredentials(t.Context())
	assert.False(t, ok)

	var zero securityDomain.Credentials
	creds, _ := GetCredentials(t.Context())
	assert.Equal(t, zero, creds)
}
