package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/models"
)

// RoleService resolves which verticals a user is approved in and which
// one is their primary role.
type RoleService struct {
	profileRepo *database.ProviderProfileRepository
}

// NewRoleService creates a new role service
func NewRoleService(profileRepo *database.ProviderProfileRepository) *RoleService {
	return &RoleService{profileRepo: profileRepo}
}

// RoleResolution is the outcome of resolving a user's provider roles
type RoleResolution struct {
	// PrimaryRole is the first approved vertical in models.RolePriority
	// order, or nil when the user holds no approved role.
	PrimaryRole *models.Vertical `json:"primary_role,omitempty"`

	// ApprovedRoles lists every approved vertical, in priority order,
	// for role-switcher UIs.
	ApprovedRoles []models.Vertical `json:"approved_roles"`

	// Applications maps each applied-for vertical to its current status,
	// approved or not.
	Applications map[models.ProviderType]models.VerificationStatus `json:"applications"`
}

// Resolve fetches all of a user's profiles in one query and computes the
// approved set and the primary role. Priority is the explicit
// models.RolePriority list; first approved wins.
func (s *RoleService) Resolve(userID uuid.UUID) (*RoleResolution, error) {
	profiles, err := s.profileRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}

	approved := map[models.ProviderType]bool{}
	resolution := &RoleResolution{
		ApprovedRoles: []models.Vertical{},
		Applications:  map[models.ProviderType]models.VerificationStatus{},
	}

	for _, p := range profiles {
		resolution.Applications[p.ProviderType] = p.VerificationStatus
		if p.VerificationStatus == models.VerificationApproved {
			approved[p.ProviderType] = true
		}
	}

	for _, pt := range models.RolePriority {
		if !approved[pt] {
			continue
		}
		vertical := models.Verticals[pt]
		resolution.ApprovedRoles = append(resolution.ApprovedRoles, vertical)
		if resolution.PrimaryRole == nil {
			v := vertical
			resolution.PrimaryRole = &v
		}
	}

	return resolution, nil
}
