package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sokosmart/marketplace-backend/internal/middleware"
	"github.com/sokosmart/marketplace-backend/internal/services"
)

// RoleHandler exposes role resolution for the current user
type RoleHandler struct {
	roleService *services.RoleService
	logger      *logrus.Logger
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(roleService *services.RoleService, logger *logrus.Logger) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		logger:      logger,
	}
}

// GetMyRoles handles GET /api/v1/roles/me.
// Returns the approved verticals plus the primary role a client should
// land the user on. Multi-role users see the full list for a switcher.
func (h *RoleHandler) GetMyRoles(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resolution, err := h.roleService.Resolve(userCtx.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve roles")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to resolve roles",
			"code":    "ROLE_RESOLUTION_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, resolution)
}
