package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// ApprovalService applies admin dispositions to provider applications.
// The status write and the is_active flag land in one UPDATE, and every
// disposition fans out to the audit log and the event bus.
type ApprovalService struct {
	profileRepo *database.ProviderProfileRepository
	audit       *AuditService
	bus         *EventBus
	logger      *logrus.Logger
}

// NewApprovalService creates a new approval service
func NewApprovalService(profileRepo *database.ProviderProfileRepository, audit *AuditService, bus *EventBus, logger *logrus.Logger) *ApprovalService {
	return &ApprovalService{
		profileRepo: profileRepo,
		audit:       audit,
		bus:         bus,
		logger:      logger,
	}
}

// Disposition is the reviewer's decision plus request metadata for auditing
type Disposition struct {
	AdminID   uuid.UUID
	Notes     string
	IPAddress string
	UserAgent string
}

// Approve transitions an application to approved and activates the
// provider. Also valid from rejected (reapprove): admin override is
// allowed in both directions.
func (s *ApprovalService) Approve(profileID uuid.UUID, d Disposition) (*models.ProviderProfile, error) {
	return s.review(profileID, models.VerificationApproved, d)
}

// Reject transitions an application to rejected and deactivates the
// provider. Also valid from approved (revoke).
func (s *ApprovalService) Reject(profileID uuid.UUID, d Disposition) (*models.ProviderProfile, error) {
	return s.review(profileID, models.VerificationRejected, d)
}

func (s *ApprovalService) review(profileID uuid.UUID, status models.VerificationStatus, d Disposition) (*models.ProviderProfile, error) {
	var notes *string
	if d.Notes != "" {
		notes = &d.Notes
	}

	profile, err := s.profileRepo.SetVerification(profileID, status, d.AdminID, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to apply disposition: %w", err)
	}

	s.bus.Publish(ProfileStatusEvent{
		ProfileID:    profile.ID,
		UserID:       profile.UserID,
		ProviderType: profile.ProviderType,
		Status:       status,
		Notes:        d.Notes,
	})

	// Audit failures must not undo an already-committed disposition:
	// the event has been published, so log the failure and report success
	if err := s.audit.LogApplicationReviewed(
		d.AdminID, profile.ID, profile.ProviderType, status, d.Notes, d.IPAddress, d.UserAgent,
	); err != nil {
		s.logger.WithFields(logrus.Fields{
			"profile_id": profile.ID,
			"admin_id":   d.AdminID,
			"status":     status,
			"error":      err.Error(),
		}).Error("Failed to write audit log for committed disposition")
	}

	return profile, nil
}
