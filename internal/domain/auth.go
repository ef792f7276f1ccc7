package domain

import "time"

// AccountType selects the registration flow.
type AccountType string

const (
	AccountTypeAgencyOwner AccountType = "AGENCY_OWNER"
	AccountTypeUserOnly    AccountType = "USER_ONLY"
)

// Session describes an issued session token.
type Session struct {
	ID        string
	UserID    string
	Role      Role
	AgencyID  *string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
