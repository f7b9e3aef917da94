package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// ProviderProfileRepository handles database operations for the
// provider_profiles table
type ProviderProfileRepository struct {
	db DB
}

// NewProviderProfileRepository creates a new ProviderProfileRepository
func NewProviderProfileRepository(db DB) *ProviderProfileRepository {
	return &ProviderProfileRepository{db: db}
}

const profileColumns = `
	id, user_id, provider_type, business_name, description,
	contact_email, contact_phone, city, verification_status, is_active,
	reviewed_by, reviewed_at, review_notes, created_at, updated_at
`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.ProviderProfile, error) {
	p := &models.ProviderProfile{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.ProviderType, &p.BusinessName, &p.Description,
		&p.ContactEmail, &p.ContactPhone, &p.City, &p.VerificationStatus, &p.IsActive,
		&p.ReviewedBy, &p.ReviewedAt, &p.ReviewNotes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new provider application. The verification status is
// always pending and is_active always false, regardless of input.
// Returns ErrDuplicate if the (user_id, provider_type) pair already has
// an application.
func (r *ProviderProfileRepository) Create(profile *models.ProviderProfile) (*models.ProviderProfile, error) {
	query := `
		INSERT INTO provider_profiles (
			id, user_id, provider_type, business_name, description,
			contact_email, contact_phone, city, verification_status, is_active,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', FALSE, $9, $9)
		RETURNING ` + profileColumns

	now := time.Now()
	id := profile.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(
		query,
		id, profile.UserID, profile.ProviderType, profile.BusinessName, profile.Description,
		profile.ContactEmail, profile.ContactPhone, profile.City, now,
	)

	created, err := scanProfile(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create provider profile: %w", err)
	}

	return created, nil
}

// GetByID retrieves a provider profile by ID
func (r *ProviderProfileRepository) GetByID(id uuid.UUID) (*models.ProviderProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM provider_profiles WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get provider profile: %w", err)
	}

	return profile, nil
}

// GetByUserAndType retrieves the profile for a (user, provider type) pair
func (r *ProviderProfileRepository) GetByUserAndType(userID uuid.UUID, providerType models.ProviderType) (*models.ProviderProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM provider_profiles WHERE user_id = $1 AND provider_type = $2`

	profile, err := scanProfile(r.db.QueryRow(query, userID, providerType))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get provider profile: %w", err)
	}

	return profile, nil
}

// ListByUser retrieves all profiles held by a user across verticals
func (r *ProviderProfileRepository) ListByUser(userID uuid.UUID) ([]*models.ProviderProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM provider_profiles WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*models.ProviderProfile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// ListPending retrieves pending applications, optionally filtered by
// provider type. Oldest first, so reviewers work the queue in order.
func (r *ProviderProfileRepository) ListPending(providerType *models.ProviderType) ([]*models.ProviderProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM provider_profiles WHERE verification_status = 'pending'`
	args := []interface{}{}

	if providerType != nil {
		query += ` AND provider_type = $1`
		args = append(args, *providerType)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending applications: %w", err)
	}
	defer rows.Close()

	profiles := []*models.ProviderProfile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// SetVerification applies an admin disposition as a single UPDATE.
// is_active is derived from the target status here and nowhere else,
// which keeps it in lockstep with verification_status.
func (r *ProviderProfileRepository) SetVerification(
	id uuid.UUID,
	status models.VerificationStatus,
	reviewedBy uuid.UUID,
	notes *string,
) (*models.ProviderProfile, error) {
	query := `
		UPDATE provider_profiles
		SET
			verification_status = $1,
			is_active = ($1 = 'approved'),
			reviewed_by = $2,
			reviewed_at = NOW(),
			review_notes = $3,
			updated_at = NOW()
		WHERE id = $4
		RETURNING ` + profileColumns

	var notesValue interface{}
	if notes != nil && *notes != "" {
		notesValue = *notes
	}

	profile, err := scanProfile(r.db.QueryRow(query, status, reviewedBy, notesValue, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update verification status: %w", err)
	}

	return profile, nil
}

// StatusCount holds a pending-queue count for one vertical
type StatusCount struct {
	ProviderType models.ProviderType `json:"provider_type"`
	Count        int64               `json:"count"`
}

// CountByStatus returns per-vertical counts of applications in the
// given status, for the admin dashboard.
func (r *ProviderProfileRepository) CountByStatus(status models.VerificationStatus) ([]StatusCount, error) {
	query := `
		SELECT provider_type, COUNT(*)
		FROM provider_profiles
		WHERE verification_status = $1
		GROUP BY provider_type
		ORDER BY provider_type
	`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	defer rows.Close()

	counts := []StatusCount{}
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.ProviderType, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
