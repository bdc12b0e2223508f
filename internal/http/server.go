// Package http provides the HTTP server exposing the access-control API.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	securityHTTP "github.com/loamstore/access/internal/security/http"
)

// Server represents the HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// RouterConfig carries the handlers and the middleware knobs used to
// assemble the API router.
type RouterConfig struct {
	Security    *securityHTTP.SecurityHandler
	Users       *securityHTTP.UserHandler
	Permissions *securityHTTP.PermissionHandler
	Cache       *securityHTTP.CacheHandler

	// MetricsMiddleware records per-route request metrics when non-nil.
	MetricsMiddleware gin.HandlerFunc

	CORSEnabled      bool
	CORSAllowOrigins string

	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int

	RateLimitAuthnEnabled        bool
	RateLimitAuthnRequestsPerSec float64
	RateLimitAuthnBurst          int
}

// NewServer creates a new HTTP server. The database handle is used by the
// readiness endpoint.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the API router and installs it on the server. ctx
// bounds the rate limiters' background cleanup; cancel it on shutdown.
func (s *Server) SetupRouter(ctx context.Context, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}
	if cfg.MetricsMiddleware != nil {
		router.Use(cfg.MetricsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// The authentication endpoint is the brute-force target; its limiter
	// is keyed on client IP and applies before credential decoding.
	authn := []gin.HandlerFunc{}
	if cfg.RateLimitAuthnEnabled {
		authn = append(authn, securityHTTP.AuthnRateLimitMiddleware(
			ctx,
			cfg.RateLimitAuthnRequestsPerSec,
			cfg.RateLimitAuthnBurst,
			s.logger,
		))
	}
	authn = append(authn, securityHTTP.CredentialsMiddleware(s.logger), cfg.Security.AuthenticateHandler)
	v1.POST("/security/authenticate", authn...)

	// Everything else authenticates per call through the engine; the
	// limiter is keyed on the presented principal.
	authed := v1.Group("", securityHTTP.CredentialsMiddleware(s.logger))
	if cfg.RateLimitEnabled {
		authed.Use(securityHTTP.PrincipalRateLimitMiddleware(
			ctx,
			cfg.RateLimitRequestsPerSec,
			cfg.RateLimitBurst,
			s.logger,
		))
	}

	authed.POST("/security/initialize", cfg.Security.InitializeHandler)

	checks := authed.Group("/checks")
	checks.GET("/actions/:action", cfg.Security.SystemActionCheckHandler)
	checks.GET("/tables/:table/actions/:action", cfg.Security.TableActionCheckHandler)
	checks.GET("/users/:user/actions/:action", cfg.Security.UserActionCheckHandler)
	checks.GET("/users/:user/grants/system/:permission", cfg.Security.GrantSystemCheckHandler)
	checks.GET("/users/:user/grants/tables/:table", cfg.Security.GrantTableCheckHandler)
	checks.GET("/users/:user/revocations/system/:permission", cfg.Security.RevokeSystemCheckHandler)
	checks.GET("/users/:user/revocations/tables/:table", cfg.Security.RevokeTableCheckHandler)

	users := authed.Group("/users")
	users.GET("", cfg.Users.ListHandler)
	users.POST("", cfg.Users.CreateHandler)
	users.DELETE("/:user", cfg.Users.DropHandler)
	users.PUT("/:user/password", cfg.Users.ChangePasswordHandler)
	users.GET("/:user/authorizations", cfg.Users.GetAuthorizationsHandler)
	users.PUT("/:user/authorizations", cfg.Users.ChangeAuthorizationsHandler)
	users.GET("/:user/permissions/system/:permission", cfg.Permissions.HasSystemPermissionHandler)
	users.PUT("/:user/permissions/system/:permission", cfg.Permissions.GrantSystemPermissionHandler)
	users.DELETE("/:user/permissions/system/:permission", cfg.Permissions.RevokeSystemPermissionHandler)
	users.GET("/:user/permissions/tables/:table/:permission", cfg.Permissions.HasTablePermissionHandler)
	users.PUT("/:user/permissions/tables/:table/:permission", cfg.Permissions.GrantTablePermissionHandler)
	users.DELETE("/:user/permissions/tables/:table/:permission", cfg.Permissions.RevokeTablePermissionHandler)

	authed.DELETE("/tables/:table/permissions", cfg.Permissions.DeleteTableHandler)

	cache := authed.Group("/cache")
	cache.GET("/status", cfg.Cache.StatusHandler)
	cache.POST("/users/:user/clear", cfg.Cache.ClearUserHandler)
	cache.POST("/tables/:table/clear", cfg.Cache.ClearTableHandler)

	s.router = router
	return router
}

// GetRouter returns the router for testing purposes.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter first")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve decisions.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}
	components["database"] = "ok"

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
