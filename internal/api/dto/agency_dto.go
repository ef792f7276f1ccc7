package dto

import (
	"time"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// CreateAgencyRequest payload.
type CreateAgencyRequest struct {
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Plan    *string `json:"plan"`
}

// UpdateAgencyRequest payload. Every field is optional.
type UpdateAgencyRequest struct {
	Name     *string `json:"name"`
	City     *string `json:"city"`
	Country  *string `json:"country"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Plan     *string `json:"plan"`
	IsActive *bool   `json:"isActive"`
}

// AgencyResponse is the full agency representation.
type AgencyResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	City      string            `json:"city"`
	Country   string            `json:"country"`
	Email     *string           `json:"email"`
	Phone     *string           `json:"phone"`
	Plan      domain.AgencyPlan `json:"plan"`
	IsActive  bool              `json:"isActive"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// AgencySummary is embedded in users and listings.
type AgencySummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	City     string `json:"city"`
	Country  string `json:"country"`
	IsActive bool   `json:"isActive"`
}

// NewAgencyResponse maps a domain agency.
func NewAgencyResponse(a *domain.Agency) AgencyResponse {
	return AgencyResponse{
		ID:        a.ID,
		Name:      a.Name,
		Slug:      a.Slug,
		City:      a.City,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
		Plan:      a.Plan,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// NewAgencyResponses maps a slice, never returning nil.
func NewAgencyResponses(agencies []domain.Agency) []AgencyResponse {
	out := make([]AgencyResponse, 0, len(agencies))
	for i := range agencies {
		out = append(out, NewAgencyResponse(&agencies[i]))
	}
	return out
}

// NewAgencySummary maps an optional agency.
func NewAgencySummary(a *domain.Agency) *AgencySummary {
	if a == nil {
		return nil
	}
	return &AgencySummary{
		ID:       a.ID,
		Name:     a.Name,
		Slug:     a.Slug,
		City:     a.City,
		Country:  a.Country,
		IsActive: a.IsActive,
	}
}
