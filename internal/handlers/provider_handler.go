package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/middleware"
	"github.com/sokosmart/marketplace-backend/internal/models"
	"github.com/sokosmart/marketplace-backend/internal/services"
	"github.com/sokosmart/marketplace-backend/internal/utils"
	"github.com/sokosmart/marketplace-backend/pkg/validator"
)

// ProviderHandler handles provider application submission and self-service
// status checks across all verticals.
type ProviderHandler struct {
	profileRepo    *database.ProviderProfileRepository
	auditService   *services.AuditService
	phoneValidator *validator.PhoneValidator
	logger         *logrus.Logger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(
	profileRepo *database.ProviderProfileRepository,
	auditService *services.AuditService,
	phoneValidator *validator.PhoneValidator,
	logger *logrus.Logger,
) *ProviderHandler {
	return &ProviderHandler{
		profileRepo:    profileRepo,
		auditService:   auditService,
		phoneValidator: phoneValidator,
		logger:         logger,
	}
}

// SubmitApplicationRequest is the application payload. Status fields are
// deliberately absent: every new application starts pending.
type SubmitApplicationRequest struct {
	BusinessName string  `json:"business_name" binding:"required"`
	ContactPhone string  `json:"contact_phone" binding:"required"`
	Description  *string `json:"description,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	City         *string `json:"city,omitempty"`
}

// providerTypeFromPath resolves and validates the :type URL segment
func providerTypeFromPath(c *gin.Context) (models.ProviderType, bool) {
	pt, ok := models.ParseProviderType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Unknown provider type: " + c.Param("type"),
			"code":    "UNKNOWN_PROVIDER_TYPE",
		})
		return "", false
	}
	return pt, true
}

// SubmitApplication handles POST /api/v1/providers/:type/applications
func (h *ProviderHandler) SubmitApplication(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	providerType, ok := providerTypeFromPath(c)
	if !ok {
		return
	}

	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	contactPhone, err := h.phoneValidator.Validate(req.ContactPhone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_PHONE",
		})
		return
	}

	profile := &models.ProviderProfile{
		UserID:       userCtx.UserID,
		ProviderType: providerType,
		BusinessName: req.BusinessName,
		ContactPhone: contactPhone,
	}
	if req.Description != nil {
		profile.Description.String = *req.Description
		profile.Description.Valid = true
	}
	if req.ContactEmail != nil {
		profile.ContactEmail.String = *req.ContactEmail
		profile.ContactEmail.Valid = true
	}
	if req.City != nil {
		profile.City.String = *req.City
		profile.City.Valid = true
	}

	created, err := h.profileRepo.Create(profile)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "conflict",
				"message": "You already have a " + models.Verticals[providerType].DisplayName + " application",
				"code":    "DUPLICATE_APPLICATION",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create provider application")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to submit application",
			"code":    "SUBMISSION_FAILED",
		})
		return
	}

	if err := h.auditService.LogApplicationSubmitted(
		userCtx.UserID, created.ID, providerType, utils.GetRealIP(c), utils.GetUserAgent(c),
	); err != nil {
		h.logger.WithError(err).Warn("Failed to audit application submission")
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application submitted. You will be notified once it has been reviewed.",
		"application": created,
	})
}

// GetMyApplication handles GET /api/v1/providers/:type/application
func (h *ProviderHandler) GetMyApplication(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	providerType, ok := providerTypeFromPath(c)
	if !ok {
		return
	}

	profile, err := h.profileRepo.GetByUserAndType(userCtx.UserID, providerType)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "You have not applied to become a " + models.Verticals[providerType].DisplayName + " yet",
				"code":    "NO_APPLICATION",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch provider application")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch application"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Dashboard handles GET /api/v1/providers/:type/dashboard.
// Reached only through RequireApprovedProvider, so the profile in
// context is always approved.
func (h *ProviderHandler) Dashboard(c *gin.Context) {
	profile, exists := middleware.GetProviderProfile(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Provider profile missing from context"})
		return
	}

	vertical := models.Verticals[profile.ProviderType]
	c.JSON(http.StatusOK, gin.H{
		"message":  "Welcome to your " + vertical.DisplayName + " dashboard",
		"vertical": vertical,
		"profile":  profile,
	})
}
