package entities

import (
	"github.com/google/uuid"
)

// UserRole defines user roles
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleReviewer UserRole = "reviewer"
)

// IsValid checks if the user role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleReviewer:
		return true
	}
	return false
}

// Subject is the authenticated caller resolved from an access token
type Subject struct {
	UserID    uuid.UUID   `json:"user_id"`
	Role      UserRole    `json:"role"`
	CompanyID *uuid.UUID  `json:"company_id,omitempty"`
	TeamIDs   []uuid.UUID `json:"team_ids,omitempty"`
}

// IsAdmin checks if the subject has the admin role
func (s Subject) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// IsTeamMember checks if the subject belongs to the given team
func (s Subject) IsTeamMember(teamID uuid.UUID) bool {
	for _, id := range s.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// CanManageCriteria checks if the subject may create evaluation templates
func (s Subject) CanManageCriteria() bool {
	return s.Role == RoleAdmin || s.Role == RoleManager
}

// OwnedResource is implemented by every entity guarded by the access predicate
type OwnedResource interface {
	OwnerID() uuid.UUID
	TeamScope() *uuid.UUID
	Public() bool
}
