package http

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loamstore/access/internal/httputil"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	"github.com/loamstore/access/internal/security/http/dto"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
	customValidation "github.com/loamstore/access/internal/validation"
)

// SecurityHandler handles bootstrap, authentication, and permission-check
// requests. Checks are read-only and answer "would this action be allowed"
// without performing it; tablet servers ask before every scan and write.
type SecurityHandler struct {
	engine securityUseCase.SecurityUseCase
	logger *slog.Logger
}

// NewSecurityHandler creates a new security handler.
func NewSecurityHandler(engine securityUseCase.SecurityUseCase, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{engine: engine, logger: logger}
}

// InitializeHandler seeds the bootstrap root identity.
// POST /v1/security/initialize - System identity only.
// Returns 204 No Content.
func (h *SecurityHandler) InitializeHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	var req dto.InitializeSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	rootSecret, err := base64.StdEncoding.DecodeString(req.RootSecret)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 root secret: %w", err), h.logger)
		return
	}

	if err := h.engine.InitializeSecurity(c.Request.Context(), creds, req.RootUser, rootSecret); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// AuthenticateHandler verifies another user's credentials.
// POST /v1/security/authenticate
// Returns 200 OK with the decision.
func (h *SecurityHandler) AuthenticateHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	var req dto.AuthenticateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := base64.StdEncoding.DecodeString(req.Secret)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 secret: %w", err), h.logger)
		return
	}

	authenticated, err := h.engine.AuthenticateUser(c.Request.Context(), creds, req.User, secret)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(authenticated))
}

// tableActions maps URL action names onto the engine's table predicates.
func (h *SecurityHandler) tableActions() map[string]func(ctx context.Context, creds securityDomain.Credentials, table string) (bool, error) {
	return map[string]func(ctx context.Context, creds securityDomain.Credentials, table string) (bool, error){
		"scan":           h.engine.CanScan,
		"write":          h.engine.CanWrite,
		"flush":          h.engine.CanFlush,
		"split-tablet":   h.engine.CanSplitTablet,
		"alter":          h.engine.CanAlterTable,
		"rename":         h.engine.CanRenameTable,
		"clone":          h.engine.CanCloneTable,
		"delete":         h.engine.CanDeleteTable,
		"online-offline": h.engine.CanOnlineOfflineTable,
		"merge":          h.engine.CanMerge,
		"delete-range":   h.engine.CanDeleteRange,
		"bulk-import":    h.engine.CanBulkImport,
		"compact":        h.engine.CanCompact,
	}
}

// TableActionCheckHandler answers whether the caller may perform an action
// on a table.
// GET /v1/checks/tables/:table/actions/:action
// Returns 200 OK with the decision.
func (h *SecurityHandler) TableActionCheckHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	check, ok := h.tableActions()[c.Param("action")]
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("unknown table action %q", c.Param("action")), h.logger)
		return
	}

	allowed, err := check(c.Request.Context(), creds, c.Param("table"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(allowed))
}

// SystemActionCheckHandler answers caller-scoped questions that have no
// table or target user.
// GET /v1/checks/actions/:action - actions: create-table, system.
// Returns 200 OK with the decision.
func (h *SecurityHandler) SystemActionCheckHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	var allowed bool
	var err error
	switch action := c.Param("action"); action {
	case "create-table":
		allowed, err = h.engine.CanCreateTable(c.Request.Context(), creds)
	case "system":
		allowed, err = h.engine.CanPerformSystemActions(c.Request.Context(), creds)
	default:
		httputil.HandleValidationErrorGin(c, fmt.Errorf("unknown system action %q", action), h.logger)
		return
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(allowed))
}

// UserActionCheckHandler answers whether the caller may perform an
// administrative action on a target user.
// GET /v1/checks/users/:user/actions/:action - actions: create, drop,
// change-password, change-authorizations.
// Returns 200 OK with the decision.
func (h *SecurityHandler) UserActionCheckHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	user := c.Param("user")
	var allowed bool
	var err error
	switch action := c.Param("action"); action {
	case "create":
		allowed, err = h.engine.CanCreateUser(c.Request.Context(), creds, user)
	case "drop":
		allowed, err = h.engine.CanDropUser(c.Request.Context(), creds, user)
	case "change-password":
		allowed, err = h.engine.CanChangePassword(c.Request.Context(), creds, user)
	case "change-authorizations":
		allowed, err = h.engine.CanChangeAuthorizations(c.Request.Context(), creds, user)
	default:
		httputil.HandleValidationErrorGin(c, fmt.Errorf("unknown user action %q", action), h.logger)
		return
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(allowed))
}

// GrantSystemCheckHandler answers whether the caller may grant a system
// permission to a target user.
// GET /v1/checks/users/:user/grants/system/:permission
func (h *SecurityHandler) GrantSystemCheckHandler(c *gin.Context) {
	h.systemGrantCheck(c, h.engine.CanGrantSystem)
}

// RevokeSystemCheckHandler answers whether the caller may revoke a system
// permission from a target user.
// GET /v1/checks/users/:user/revocations/system/:permission
func (h *SecurityHandler) RevokeSystemCheckHandler(c *gin.Context) {
	h.systemGrantCheck(c, h.engine.CanRevokeSystem)
}

// GrantTableCheckHandler answers whether the caller may grant table
// permissions to a target user on a table.
// GET /v1/checks/users/:user/grants/tables/:table
func (h *SecurityHandler) GrantTableCheckHandler(c *gin.Context) {
	h.tableGrantCheck(c, h.engine.CanGrantTable)
}

// RevokeTableCheckHandler answers whether the caller may revoke table
// permissions from a target user on a table.
// GET /v1/checks/users/:user/revocations/tables/:table
func (h *SecurityHandler) RevokeTableCheckHandler(c *gin.Context) {
	h.tableGrantCheck(c, h.engine.CanRevokeTable)
}

func (h *SecurityHandler) systemGrantCheck(
	c *gin.Context,
	check func(ctx context.Context, creds securityDomain.Credentials, user string, perm securityDomain.SystemPermission) (bool, error),
) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	perm, valid := securityDomain.ParseSystemPermission(c.Param("permission"))
	if !valid {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("unknown system permission %q", c.Param("permission")), h.logger)
		return
	}

	allowed, err := check(c.Request.Context(), creds, c.Param("user"), perm)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(allowed))
}

func (h *SecurityHandler) tableGrantCheck(
	c *gin.Context,
	check func(ctx context.Context, creds securityDomain.Credentials, user string, table string) (bool, error),
) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	allowed, err := check(c.Request.Context(), creds, c.Param("user"), c.Param("table"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(allowed))
}
