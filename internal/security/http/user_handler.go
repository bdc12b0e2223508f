package http

import (
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

// UserHandler handles HTTP requests for user lifecycle operations.
type UserHandler struct {
	engine securityUseCase.SecurityUseCase
	logger *slog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(engine securityUseCase.SecurityUseCase, logger *slog.Logger) *UserHandler {
	return &UserHandler{engine: engine, logger: logger}
}

// ListHandler returns every known username with pagination.
// GET /v1/users?offset=0&limit=50
// Returns 200 OK with the page of usernames.
func (h *UserHandler) ListHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	users, err := h.engine.ListUsers(c.Request.Context(), creds)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// The engine returns the full sorted list; page it here.
	if offset > len(users) {
		offset = len(users)
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}

	c.JSON(http.StatusOK, dto.NewListUsersResponse(users[offset:end]))
}

// CreateHandler creates a new user.
// POST /v1/users - Requires the create-user permission.
// Returns 201 Created.
func (h *UserHandler) CreateHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
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

	auths := securityDomain.NewAuthorizations(req.Authorizations...)
	if err := h.engine.CreateUser(c.Request.Context(), creds, req.User, secret, auths); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusCreated, "application/json", nil)
}

// DropHandler removes a user and every permission record attached to them.
// DELETE /v1/users/:user - Requires the drop-user permission.
// Returns 204 No Content.
func (h *UserHandler) DropHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	if err := h.engine.DropUser(c.Request.Context(), creds, c.Param("user")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ChangePasswordHandler replaces a user's secret.
// PUT /v1/users/:user/password
// Returns 204 No Content.
func (h *UserHandler) ChangePasswordHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
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

	if err := h.engine.ChangePassword(c.Request.Context(), creds, c.Param("user"), secret); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// GetAuthorizationsHandler returns a user's visibility labels.
// GET /v1/users/:user/authorizations
// Returns 200 OK with the label set.
func (h *UserHandler) GetAuthorizationsHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	user := c.Param("user")
	auths, err := h.engine.GetUserAuthorizations(c.Request.Context(), creds, user)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewAuthorizationsResponse(user, auths))
}

// ChangeAuthorizationsHandler replaces a user's visibility labels.
// PUT /v1/users/:user/authorizations - Requires the alter-user permission.
// Returns 204 No Content.
func (h *UserHandler) ChangeAuthorizationsHandler(c *gin.Context) {
	creds, ok := callerCredentials(c, h.logger)
	if !ok {
		return
	}

	var req dto.ChangeAuthorizationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	auths := securityDomain.NewAuthorizations(req.Authorizations...)
	if err := h.engine.ChangeAuthorizations(c.Request.Context(), creds, c.Param("user"), auths); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
