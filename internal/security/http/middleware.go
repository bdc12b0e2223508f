package http

import (
	"encoding/base64"
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "github.com/loamstore/access/internal/errors"
	"github.com/loamstore/access/internal/httputil"
	securityDomain "github.com/loamstore/access/internal/security/domain"
)

// Credential headers presented on every request. The secret is
// base64-encoded so binary secrets survive the header encoding.
const (
	HeaderPrincipal = "X-Loam-Principal"
	HeaderSecret    = "X-Loam-Secret"
	HeaderInstance  = "X-Loam-Instance"
)

// CredentialsMiddleware decodes the caller's credentials from the request
// headers and stores them in the request context for handlers to pick up
// via GetCredentials.
//
// The middleware only decodes; it never authenticates. Every engine
// operation authenticates the credentials itself, so a bad secret still
// reaches the engine and comes back as a typed BAD_CREDENTIALS error with
// the correct attribution.
//
// Error handling:
//   - Missing principal or instance header → 401 Unauthorized
//   - Secret that is not valid base64 → 401 Unauthorized
func CredentialsMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(HeaderPrincipal)
		instance := c.GetHeader(HeaderInstance)
		if user == "" || instance == "" {
			logger.Debug("credentials missing",
				slog.Bool("has_principal", user != ""),
				slog.Bool("has_instance", instance != ""))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		secret, err := base64.StdEncoding.DecodeString(c.GetHeader(HeaderSecret))
		if err != nil {
			logger.Debug("credentials secret is not valid base64",
				slog.String("principal", user))
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		creds := securityDomain.NewCredentials(user, secret, instance)
		ctx := WithCredentials(c.Request.Context(), creds)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// callerCredentials pulls the decoded credentials out of the gin context,
// writing a 401 and aborting when the middleware did not run.
func callerCredentials(c *gin.Context, logger *slog.Logger) (securityDomain.Credentials, bool) {
	creds, ok := GetCredentials(c.Request.Context())
	if !ok {
		logger.Debug("no credentials in request context")
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
		c.Abort()
		return securityDomain.Credentials{}, false
	}
	return creds, true
}
