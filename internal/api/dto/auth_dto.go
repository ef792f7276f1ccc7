package dto

import (
	"time"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	Name        *string `json:"name"`
	AccountType *string `json:"accountType"`
	AgencyName  *string `json:"agencyName"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
	Phone       *string `json:"phone"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        domain.Role    `json:"role"`
	AgencyID    *string        `json:"agencyId"`
	IsActive    bool           `json:"isActive"`
	LastLoginAt *time.Time     `json:"lastLoginAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	Agency      *AgencySummary `json:"agency"`
}

// RegisterResponse is returned by POST /auth/register.
type RegisterResponse struct {
	User        UserResponse       `json:"user"`
	Agency      *AgencyResponse    `json:"agency"`
	AccountType domain.AccountType `json:"accountType"`
}

// UserEnvelope wraps a user for login and /auth/me.
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		AgencyID:    u.AgencyID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		Agency:      NewAgencySummary(u.Agency),
	}
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
