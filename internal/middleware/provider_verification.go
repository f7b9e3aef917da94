package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// ProviderProfileKey is the context key the verified profile is stored under
const ProviderProfileKey = "provider_profile"

// RequireApprovedProvider gates a route group on the caller holding an
// approved application in the given vertical. One middleware serves all
// verticals; the provider type is the only parameter.
// Must be used after AuthMiddleware to have the user context available.
//
// Outcomes:
//   - no user context      -> 401
//   - no application       -> 403 NO_APPLICATION
//   - application pending  -> 403 APPLICATION_PENDING
//   - application rejected -> 403 APPLICATION_REJECTED (with review notes)
//   - approved             -> profile stored in context, chain continues
func RequireApprovedProvider(profileRepo *database.ProviderProfileRepository, providerType models.ProviderType) gin.HandlerFunc {
	vertical := models.Verticals[providerType]

	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User context not found",
				"code":    "MISSING_USER_CONTEXT",
			})
			c.Abort()
			return
		}

		profile, err := profileRepo.GetByUserAndType(userCtx.UserID, providerType)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				c.JSON(http.StatusForbidden, gin.H{
					"error":   "no_application",
					"message": "You have not applied to become a " + vertical.DisplayName + " yet.",
					"code":    "NO_APPLICATION",
				})
				c.Abort()
				return
			}
			log.Printf("ERROR: Failed to load %s profile for verification check: %v", providerType, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to check provider status",
				"code":    "PROFILE_LOOKUP_FAILED",
			})
			c.Abort()
			return
		}

		switch profile.VerificationStatus {
		case models.VerificationApproved:
			// Fall through to render the protected resource

		case models.VerificationPending:
			c.JSON(http.StatusForbidden, gin.H{
				"error":               "not_verified",
				"message":             "Your " + vertical.DisplayName + " application is awaiting review.",
				"code":                "APPLICATION_PENDING",
				"verification_status": profile.VerificationStatus,
			})
			c.Abort()
			return

		case models.VerificationRejected:
			resp := gin.H{
				"error":               "not_verified",
				"message":             "Your " + vertical.DisplayName + " application was rejected.",
				"code":                "APPLICATION_REJECTED",
				"verification_status": profile.VerificationStatus,
			}
			if profile.ReviewNotes.Valid {
				resp["review_notes"] = profile.ReviewNotes.String
			}
			c.JSON(http.StatusForbidden, resp)
			c.Abort()
			return

		default:
			log.Printf("ERROR: Profile %s has unknown verification status %q", profile.ID, profile.VerificationStatus)
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "not_verified",
				"message": "Your application is in an unknown state. Contact support.",
				"code":    "UNKNOWN_STATUS",
			})
			c.Abort()
			return
		}

		c.Set(ProviderProfileKey, profile)
		c.Next()
	}
}

// GetProviderProfile retrieves the verified profile stored by
// RequireApprovedProvider
func GetProviderProfile(c *gin.Context) (*models.ProviderProfile, bool) {
	value, exists := c.Get(ProviderProfileKey)
	if !exists {
		return nil, false
	}

	profile, ok := value.(*models.ProviderProfile)
	if !ok {
		return nil, false
	}

	return profile, true
}
