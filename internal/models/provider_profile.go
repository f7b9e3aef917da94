package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType identifies the marketplace vertical a user operates in
type ProviderType string

const (
	ProviderVendor          ProviderType = "vendor"
	ProviderDriver          ProviderType = "driver"
	ProviderPropertyOwner   ProviderType = "property_owner"
	ProviderServiceProvider ProviderType = "service_provider"
	ProviderMedicalProvider ProviderType = "medical_provider"
)

// RolePriority is the explicit ordering used to pick a primary role for
// accounts approved in more than one vertical. First approved wins.
var RolePriority = []ProviderType{
	ProviderVendor,
	ProviderDriver,
	ProviderPropertyOwner,
	ProviderServiceProvider,
	ProviderMedicalProvider,
}

// VerificationStatus represents the approval lifecycle of an application
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Vertical describes a provider vertical: display copy and the dashboard
// route a client should land approved providers on.
type Vertical struct {
	Type          ProviderType `json:"type"`
	DisplayName   string       `json:"display_name"`
	DashboardPath string       `json:"dashboard_path"`
}

// Verticals maps each provider type to its configuration
var Verticals = map[ProviderType]Vertical{
	ProviderVendor:          {Type: ProviderVendor, DisplayName: "Vendor", DashboardPath: "/vendor/dashboard"},
	ProviderDriver:          {Type: ProviderDriver, DisplayName: "Driver", DashboardPath: "/driver/dashboard"},
	ProviderPropertyOwner:   {Type: ProviderPropertyOwner, DisplayName: "Property Owner", DashboardPath: "/property-owner/dashboard"},
	ProviderServiceProvider: {Type: ProviderServiceProvider, DisplayName: "Service Provider", DashboardPath: "/services/dashboard"},
	ProviderMedicalProvider: {Type: ProviderMedicalProvider, DisplayName: "Medical Provider", DashboardPath: "/medical/dashboard"},
}

// ParseProviderType validates a provider type from a URL segment
func ParseProviderType(s string) (ProviderType, bool) {
	pt := ProviderType(s)
	_, ok := Verticals[pt]
	return pt, ok
}

// ProviderProfile represents a provider application and its verification
// lifecycle. One row per (user_id, provider_type) pair, enforced by a
// unique constraint.
type ProviderProfile struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	UserID       uuid.UUID    `db:"user_id" json:"user_id"`
	ProviderType ProviderType `db:"provider_type" json:"provider_type"`

	// Business metadata, presence-checked at submission only
	BusinessName string     `db:"business_name" json:"business_name"`
	Description  NullString `db:"description" json:"description,omitempty"`
	ContactEmail NullString `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone string     `db:"contact_phone" json:"contact_phone"`
	City         NullString `db:"city" json:"city,omitempty"`

	// Verification lifecycle. is_active is true iff status is approved and
	// is only ever written in lockstep with verification_status.
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	IsActive           bool               `db:"is_active" json:"is_active"`

	// Review metadata
	ReviewedBy  uuid.NullUUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  NullTime      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes NullString    `db:"review_notes" json:"review_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Notification represents an inbox entry for a user, written when an
// admin disposition changes an application's status.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ReadAt    NullTime  `db:"read_at" json:"read_at,omitempty"`
}
