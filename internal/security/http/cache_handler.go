package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loamstore/access/internal/httputil"
	"github.com/loamstore/access/internal/security/http/dto"
	securityUseCase "github.com/loamstore/access/internal/security/usecase"
	customValidation "github.com/loamstore/access/internal/validation"
)

// CacheHandler handles the node-internal cache sweep endpoints. The
// cluster manager calls these on every node after a mutation so stale
// cached decisions converge. They sit behind the credentials middleware
// like everything else, but the engine treats them as node-internal and
// does not evaluate caller permissions.
type CacheHandler struct {
	engine securityUseCase.SecurityUseCase
	logger *slog.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(engine securityUseCase.SecurityUseCase, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{engine: engine, logger: logger}
}

// ClearUserHandler drops the selected cached entries for a user.
// POST /v1/cache/users/:user/clear
// Returns 204 No Content.
func (h *CacheHandler) ClearUserHandler(c *gin.Context) {
	var req dto.ClearUserCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err := h.engine.ClearUserCache(
		c.Request.Context(),
		c.Param("user"),
		req.Password,
		req.Authorizations,
		req.System,
		req.Tables,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ClearTableHandler drops cached permission entries scoped to a table.
// POST /v1/cache/tables/:table/clear
// Returns 204 No Content.
func (h *CacheHandler) ClearTableHandler(c *gin.Context) {
	if err := h.engine.ClearTableCache(c.Request.Context(), c.Param("table")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// StatusHandler reports whether either backend still holds cached entries.
// GET /v1/cache/status
// Returns 200 OK with the pending flag.
func (h *CacheHandler) StatusHandler(c *gin.Context) {
	pending, err := h.engine.CachesToClear(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CacheStatusResponse{Pending: pending})
}
