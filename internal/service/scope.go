package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/agency-listings/internal/domain"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// Visibility rules shared by the agency and listing services.
//
//	super admin   everything
//	agency staff  rows of their own agency
//	anyone else   ACTIVE listings of active agencies, no agencies

func requireActor(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return nil
}

// isStaff reports whether the actor is scoped to exactly one agency.
func isStaff(actor *domain.User) bool {
	return actor != nil && !actor.IsSuperAdmin() && actor.HasAgency()
}

// isPublic reports whether the actor only gets the public gallery view.
func isPublic(actor *domain.User) bool {
	return actor == nil || (!actor.IsSuperAdmin() && !actor.HasAgency())
}

func canViewListing(actor *domain.User, l *domain.Listing) bool {
	switch {
	case actor.IsSuperAdmin():
		return true
	case isStaff(actor):
		return actor.BelongsTo(l.AgencyID)
	default:
		return l.Status == domain.ListingStatusActive && (l.Agency == nil || l.Agency.IsActive)
	}
}

func canManageListing(actor *domain.User, l *domain.Listing) bool {
	return actor.IsSuperAdmin() || actor.BelongsTo(l.AgencyID)
}

func parseID(raw, resource string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperrors.NewValidationError("invalid "+resource+" id", map[string]any{"id": raw})
	}
	return id.String(), nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
