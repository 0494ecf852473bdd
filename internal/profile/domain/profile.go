package domain

import (
	"errors"
	"time"
)

// Role is the profile's role tag.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the two known role tags.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// Profile represents a user profile. A nil OrganizationID means the user has
// not completed organization onboarding yet.
type Profile struct {
	ID             string
	Email          string
	FullName       string
	Role           Role
	OrganizationID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasOrganization reports whether the profile is linked to an organization.
func (p *Profile) HasOrganization() bool {
	return p != nil && p.OrganizationID != nil && *p.OrganizationID != ""
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Validate validates the profile for persistence. Returns an error describing the first validation failure.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Email == "" {
		return errors.New("email is required")
	}
	if !p.Role.Valid() {
		return errors.New("role must be client or admin")
	}
	return nil
}
