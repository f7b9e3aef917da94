package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/middleware"
	"github.com/sokosmart/marketplace-backend/internal/models"
	"github.com/sokosmart/marketplace-backend/internal/services"
	"github.com/sokosmart/marketplace-backend/internal/utils"
)

// AdminHandler handles the application review workflow
type AdminHandler struct {
	profileRepo     *database.ProviderProfileRepository
	userRepo        *database.UserRepository
	approvalService *services.ApprovalService
	logger          *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	profileRepo *database.ProviderProfileRepository,
	userRepo *database.UserRepository,
	approvalService *services.ApprovalService,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		profileRepo:     profileRepo,
		userRepo:        userRepo,
		approvalService: approvalService,
		logger:          logger,
	}
}

// ListPendingApplications handles GET /api/v1/admin/applications/pending.
// Accepts an optional ?type= filter for a single vertical.
func (h *AdminHandler) ListPendingApplications(c *gin.Context) {
	var typeFilter *models.ProviderType
	if raw := c.Query("type"); raw != "" {
		pt, ok := models.ParseProviderType(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Unknown provider type: " + raw,
				"code":    "UNKNOWN_PROVIDER_TYPE",
			})
			return
		}
		typeFilter = &pt
	}

	applications, err := h.profileRepo.ListPending(typeFilter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pending applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": applications,
		"total":        len(applications),
	})
}

// GetApplication handles GET /api/v1/admin/applications/:id.
// Includes the applicant's account so a reviewer has the full picture.
func (h *AdminHandler) GetApplication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid application ID",
			"code":    "INVALID_ID",
		})
		return
	}

	profile, err := h.profileRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch application"})
		return
	}

	applicant, err := h.userRepo.GetUserByID(profile.UserID)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to fetch applicant account")
	}

	c.JSON(http.StatusOK, gin.H{
		"application": profile,
		"applicant":   applicant,
	})
}

// ReviewRequest carries optional reviewer notes. Notes are required
// copy on rejection panels, so reviewers are encouraged to fill them.
type ReviewRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ApproveApplication handles POST /api/v1/admin/applications/:id/approve
func (h *AdminHandler) ApproveApplication(c *gin.Context) {
	h.review(c, models.VerificationApproved)
}

// RejectApplication handles POST /api/v1/admin/applications/:id/reject
func (h *AdminHandler) RejectApplication(c *gin.Context) {
	h.review(c, models.VerificationRejected)
}

func (h *AdminHandler) review(c *gin.Context, status models.VerificationStatus) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid application ID",
			"code":    "INVALID_ID",
		})
		return
	}

	var req ReviewRequest
	// Body is optional; a bare POST means a disposition without notes
	_ = c.ShouldBindJSON(&req)

	disposition := services.Disposition{
		AdminID:   userCtx.UserID,
		Notes:     req.Notes,
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	var profile *models.ProviderProfile
	if status == models.VerificationApproved {
		profile, err = h.approvalService.Approve(id, disposition)
	} else {
		profile, err = h.approvalService.Reject(id, disposition)
	}

	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to apply disposition")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to update application",
			"code":    "REVIEW_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application " + string(status),
		"application": profile,
	})
}

// GetDashboardStats handles GET /api/v1/admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	pending, err := h.profileRepo.CountByStatus(models.VerificationPending)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count pending applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	approved, err := h.profileRepo.CountByStatus(models.VerificationApproved)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count approved providers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	totalUsers, err := h.userRepo.CountUsers()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	var pendingTotal int64
	for _, count := range pending {
		pendingTotal += count.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"pending_by_type":  pending,
		"pending_total":    pendingTotal,
		"approved_by_type": approved,
		"total_users":      totalUsers,
	})
}
