package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
	"github.com/sokosmart/marketplace-backend/internal/utils"
)

// AuditService records security-relevant events: logins, application
// submissions, and admin dispositions.
type AuditService struct {
	auditRepo *database.AuditLogRepository
	enabled   bool
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *database.AuditLogRepository, enabled bool) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		enabled:   enabled,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID             // Can be nil for pre-authentication events
	Action     string                 // e.g. "login", "application_submitted", "application_approved"
	EntityType string                 // e.g. "user", "provider_profile"
	EntityID   *uuid.UUID             // ID of the affected entity (can be nil)
	IPAddress  string                 // Client IP address
	UserAgent  string                 // Client user agent
	Details    map[string]interface{} // Additional details
}

// LogLogin logs a login attempt
func (s *AuditService) LogLogin(userID *uuid.UUID, phone string, success bool, ipAddress, userAgent, failureReason string) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	details := map[string]interface{}{
		"phone":       phone,
		"success":     success,
		"device_info": deviceInfo,
	}
	if !success && failureReason != "" {
		details["failure_reason"] = failureReason
	}

	action := "login_failed"
	if success {
		action = "login_success"
	}

	return s.logEvent(AuditEvent{
		UserID:     userID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogApplicationSubmitted logs a provider application submission
func (s *AuditService) LogApplicationSubmitted(userID, profileID uuid.UUID, providerType models.ProviderType, ipAddress, userAgent string) error {
	deviceInfo := utils.ParseUserAgent(userAgent)

	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "application_submitted",
		EntityType: "provider_profile",
		EntityID:   &profileID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"provider_type": providerType,
			"device_info":   deviceInfo,
		},
	})
}

// LogApplicationReviewed logs an admin approval or rejection
func (s *AuditService) LogApplicationReviewed(adminID, profileID uuid.UUID, providerType models.ProviderType, status models.VerificationStatus, notes, ipAddress, userAgent string) error {
	details := map[string]interface{}{
		"provider_type": providerType,
		"disposition":   status,
	}
	if notes != "" {
		details["notes"] = notes
	}

	return s.logEvent(AuditEvent{
		UserID:     &adminID,
		Action:     "application_" + string(status),
		EntityType: "provider_profile",
		EntityID:   &profileID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// logEvent persists an audit event
func (s *AuditService) logEvent(event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	entry := &models.AuditLog{
		Action: event.Action,
	}
	if event.UserID != nil {
		entry.UserID = uuid.NullUUID{UUID: *event.UserID, Valid: true}
	}
	if event.EntityType != "" {
		entry.EntityType = models.NullString{}
		entry.EntityType.String = event.EntityType
		entry.EntityType.Valid = true
	}
	if event.EntityID != nil {
		entry.EntityID = uuid.NullUUID{UUID: *event.EntityID, Valid: true}
	}
	if event.IPAddress != "" {
		entry.IPAddress.String = event.IPAddress
		entry.IPAddress.Valid = true
	}
	if event.UserAgent != "" {
		entry.UserAgent.String = event.UserAgent
		entry.UserAgent.Valid = true
	}
	if event.Details != nil {
		detailsJSON, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		entry.Details.String = string(detailsJSON)
		entry.Details.Valid = true
	}

	return s.auditRepo.Insert(entry)
}
