package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokosmart/marketplace-backend/internal/config"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/middleware"
	"github.com/sokosmart/marketplace-backend/internal/services"
	"github.com/sokosmart/marketplace-backend/internal/utils"
	"github.com/sokosmart/marketplace-backend/pkg/jwt"
	"github.com/sokosmart/marketplace-backend/pkg/validator"
)

// AuthHandler handles registration, login and token lifecycle
type AuthHandler struct {
	jwtService       *jwt.Service
	phoneValidator   *validator.PhoneValidator
	auditService     *services.AuditService
	userRepo         *database.UserRepository
	refreshTokenRepo *database.RefreshTokenRepository
	cfg              *config.Config
	logger           *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	jwtService *jwt.Service,
	phoneValidator *validator.PhoneValidator,
	auditService *services.AuditService,
	userRepo *database.UserRepository,
	refreshTokenRepo *database.RefreshTokenRepository,
	cfg *config.Config,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		jwtService:       jwtService,
		phoneValidator:   phoneValidator,
		auditService:     auditService,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		cfg:              cfg,
		logger:           logger,
	}
}

// RegisterRequest is the signup payload
type RegisterRequest struct {
	Phone     string `json:"phone" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	phone, err := h.phoneValidator.Validate(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_PHONE",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cfg.Security.BcryptCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create account",
			"code":    "REGISTRATION_FAILED",
		})
		return
	}

	user, err := h.userRepo.CreateUser(phone, string(hash))
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "conflict",
				"message": "An account with this phone number already exists",
				"code":    "PHONE_ALREADY_REGISTERED",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create account",
			"code":    "REGISTRATION_FAILED",
		})
		return
	}

	if req.FirstName != "" || req.LastName != "" {
		var first, last *string
		if req.FirstName != "" {
			first = &req.FirstName
		}
		if req.LastName != "" {
			last = &req.LastName
		}
		if updated, err := h.userRepo.UpdateProfile(user.ID, first, last, nil, nil); err == nil {
			user = updated
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    user,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	ipAddress := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	phone, err := h.phoneValidator.Validate(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_PHONE",
		})
		return
	}

	user, err := h.userRepo.GetUserByPhone(phone)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			_ = h.auditService.LogLogin(nil, phone, false, ipAddress, userAgent, "unknown_phone")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid phone number or password",
				"code":    "INVALID_CREDENTIALS",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to look up user for login")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Login failed",
			"code":    "LOGIN_FAILED",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		_ = h.auditService.LogLogin(&user.ID, phone, false, ipAddress, userAgent, "wrong_password")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid phone number or password",
			"code":    "INVALID_CREDENTIALS",
		})
		return
	}

	if user.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "This account is suspended",
			"code":    "ACCOUNT_SUSPENDED",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Phone, user.Roles)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Login failed",
			"code":    "LOGIN_FAILED",
		})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Phone)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Login failed",
			"code":    "LOGIN_FAILED",
		})
		return
	}

	expiresAt := time.Now().Add(h.cfg.JWT.RefreshTokenExpiry)
	if err := h.refreshTokenRepo.StoreRefreshToken(user.ID, refreshToken, req.DeviceID, ipAddress, userAgent, expiresAt); err != nil {
		h.logger.WithError(err).Error("Failed to store refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Login failed",
			"code":    "LOGIN_FAILED",
		})
		return
	}

	_ = h.userRepo.UpdateLastLogin(user.ID)
	_ = h.auditService.LogLogin(&user.ID, phone, true, ipAddress, userAgent, "")

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(h.cfg.JWT.AccessTokenExpiry.Seconds()),
		"user":          user,
	})
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Invalid refresh token",
			"code":    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	if _, err := h.refreshTokenRepo.ValidateRefreshToken(req.RefreshToken); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Refresh token is no longer valid",
			"code":    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	// Re-read roles so a freshly granted admin claim takes effect on refresh
	user, err := h.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Account no longer exists",
			"code":    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Phone, user.Roles)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token on refresh")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Token refresh failed",
			"code":    "REFRESH_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"expires_in":   int(h.cfg.JWT.AccessTokenExpiry.Seconds()),
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if err := h.refreshTokenRepo.RevokeRefreshToken(req.RefreshToken); err != nil {
			h.logger.WithError(err).Warn("Failed to revoke refresh token on logout")
		}
	} else {
		// No token supplied: revoke everything for this user
		if err := h.refreshTokenRepo.RevokeAllUserTokens(userCtx.UserID); err != nil {
			h.logger.WithError(err).Warn("Failed to revoke user tokens on logout")
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// GetProfile handles GET /api/v1/user/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.userRepo.GetUserByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfileRequest is the profile update payload
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	City      *string `json:"city,omitempty"`
}

// UpdateProfile handles PUT /api/v1/user/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.UpdateProfile(userCtx.UserID, req.FirstName, req.LastName, req.Email, req.City)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}
