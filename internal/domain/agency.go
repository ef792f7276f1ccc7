package domain

import "time"

// AgencyPlan is the subscription tier of an agency.
type AgencyPlan string

const (
	AgencyPlanFree    AgencyPlan = "FREE"
	AgencyPlanPro     AgencyPlan = "PRO"
	AgencyPlanPremium AgencyPlan = "PREMIUM"
)

// Valid reports whether p is a known plan.
func (p AgencyPlan) Valid() bool {
	switch p {
	case AgencyPlanFree, AgencyPlanPro, AgencyPlanPremium:
		return true
	}
	return false
}

// Agency is a tenant organisation owning listings and staff.
type Agency struct {
	ID        string
	Name      string
	Slug      string
	City      string
	Country   string
	Email     *string
	Phone     *string
	Plan      AgencyPlan
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
