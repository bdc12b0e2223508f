package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loamstore/access/internal/httputil"
	securityDomain "github.com/loamstore/access/internal/security/domain"
	"github.com/loamstore/access/internal/security/http/dto"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
)

// PermissionHandler handles HTTP requests that read, grant, and revoke
// system and table permissions.
type PermissionHandler struct {
	engine securityUseCase.SecurityUseCase
	logger *slog.Logger
}

// NewPermissionHandler creates a new permission handler.
func NewPermissionHandler(engine securityUseCase.SecurityUseCase, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{engine: engine, logger: logger}
}

// systemPermission parses the :permission URL parameter, writing a 422 on
// an unknown name.
func (h *PermissionHandler) systemPermission(c *gin.Context) (securityDomain.SystemPermission, bool) {
	perm, ok := securityDomain.ParseSystemPermission(c.Param("permission"))
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("unknown system permission %q", c.Param("permission")), h.logger)
		return "", false
	}
	return perm, true
}

// tablePermission parses the :permission URL parameter, writing a 422 on
// an unknown name.
func (h *PermissionHandler) tablePermission(c *gin.Context) (securityDomain.TablePermission, bool) {
	perm, ok := securityDomain.ParseTablePermission(c.Param("permission"))
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("unknown table permission %q", c.Param("permission")), h.logger)
		return "", false
	}
	return perm, true
}

// HasSystemPermissionHandler answers whether a user holds a system
// permission.
// GET /v1/users/:user/permissions/system/:permission
// Returns 200 OK with the decision.
func (h *PermissionHandler) HasSystemPermissionHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}
	perm, ok := h.systemPermission(c)
	if !ok {
		return
	}

	held, err := h.engine.HasSystemPermission(c.Request.Context(), creds, c.Param("user"), perm)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(held))
}

// GrantSystemPermissionHandler grants a system permission to a user.
// PUT /v1/users/:user/permissions/system/:permission - Requires grant.
// Returns 204 No Content.
func (h *PermissionHandler) GrantSystemPermissionHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}
	perm, ok := h.systemPermission(c)
	if !ok {
		return
	}

	if err := h.engine.GrantSystemPermission(c.Request.Context(), creds, c.Param("user"), perm); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RevokeSystemPermissionHandler revokes a system permission from a user.
// DELETE /v1/users/:user/permissions/system/:permission - Requires grant.
// Returns 204 No Content.
func (h *PermissionHandler) RevokeSystemPermissionHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}
	perm, ok := h.systemPermission(c)
	if !ok {
		return
	}

	if err := h.engine.RevokeSystemPermission(c.Request.Context(), creds, c.Param("user"), perm); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// HasTablePermissionHandler answers whether a user holds a permission on a
// table.
// GET /v1/users/:user/permissions/tables/:table/:permission
// Returns 200 OK with the decision.
func (h *PermissionHandler) HasTablePermissionHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}
	perm, ok := h.tablePermission(c)
	if !ok {
		return
	}

	held, err := h.engine.HasTablePermission(c.Request.Context(), creds, c.Param("user"), c.Param("table"), perm)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewDecisionResponse(held))
}

// GrantTablePermissionHandler grants a table permission to a user.
// PUT /v1/users/:user/permissions/tables/:table/:permission
// Returns 204 No Content.
func (h *PermissionHandler) GrantTablePermissionHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}
	perm, ok := h.tablePermission(c)
	if !ok {
		return
	}

	if err := h.engine.GrantTablePermission(c.Request.Context(), creds, c.Param("user"), c.Param("table"), perm); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RevokeTablePermissionHandler revokes a table permission from a user.
// DELETE /v1/users/:user/permissions/tables/:table/:permission
// Returns 204 No Content.
func (h *PermissionHandler) RevokeTablePermissionHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}
	perm, ok := h.tablePermission(c)
	if !ok {
		return
	}

	if err := h.engine.RevokeTablePermission(c.Request.Context(), creds, c.Param("user"), c.Param("table"), perm); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// DeleteTableHandler clears every user's permissions on a table being
// dropped from the store.
// DELETE /v1/tables/:table/permissions
// Returns 204 No Content.
func (h *PermissionHandler) DeleteTableHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	if err := h.engine.DeleteTable(c.Request.Context(), creds, c.Param("table")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
