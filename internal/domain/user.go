package domain

import "time"

// Role enumerates account roles.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleAgencyAdmin Role = "AGENCY_ADMIN"
	RoleAgent       Role = "AGENT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAgencyAdmin, RoleAgent:
		return true
	}
	return false
}

// User is an account. Every role except SUPER_ADMIN is bound to at most one agency.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	AgencyID     *string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Agency is populated by lookups that join the user's agency.
	Agency *Agency
}

// IsSuperAdmin reports whether the user bypasses tenant scoping.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// HasAgency reports whether the user is attached to an agency.
func (u *User) HasAgency() bool {
	return u != nil && u.AgencyID != nil && *u.AgencyID != ""
}

// BelongsTo reports whether the user is staff of the given agency.
func (u *User) BelongsTo(agencyID string) bool {
	return u.HasAgency() && *u.AgencyID == agencyID
}
