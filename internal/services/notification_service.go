package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// NotificationService turns profile status events into inbox rows for
// the affected user. It subscribes to the event bus so the approval
// path never has to call it directly.
type NotificationService struct {
	notificationRepo *database.NotificationRepository
	logger           *logrus.Logger
	done             chan struct{}
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationRepo *database.NotificationRepository, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
		done:             make(chan struct{}),
	}
}

// Start consumes status events until the bus closes its channel.
// Call as a goroutine after subscribing.
func (s *NotificationService) Start(events <-chan ProfileStatusEvent) {
	defer close(s.done)

	for event := range events {
		if err := s.notifyStatusChange(event); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"profile_id": event.ProfileID,
				"user_id":    event.UserID,
				"status":     event.Status,
			}).Error("Failed to write status notification")
		}
	}
}

// Wait blocks until the consumer goroutine has drained and exited
func (s *NotificationService) Wait() {
	<-s.done
}

func (s *NotificationService) notifyStatusChange(event ProfileStatusEvent) error {
	vertical, ok := models.Verticals[event.ProviderType]
	if !ok {
		return fmt.Errorf("unknown provider type %q", event.ProviderType)
	}

	var title, body string
	switch event.Status {
	case models.VerificationApproved:
		title = fmt.Sprintf("%s application approved", vertical.DisplayName)
		body = fmt.Sprintf("Congratulations! Your %s application has been approved. Your dashboard is now available at %s.",
			vertical.DisplayName, vertical.DashboardPath)
	case models.VerificationRejected:
		title = fmt.Sprintf("%s application rejected", vertical.DisplayName)
		body = fmt.Sprintf("Your %s application was not approved.", vertical.DisplayName)
		if event.Notes != "" {
			body += " Reason: " + event.Notes
		}
	default:
		// Pending transitions come from submission, which the applicant
		// already knows about
		return nil
	}

	_, err := s.notificationRepo.Create(event.UserID, title, body)
	return err
}
