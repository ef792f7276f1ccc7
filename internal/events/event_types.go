package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as AMQP routing keys.
type EventType string

const (
	EventListingCreated EventType = "listing.created"
	EventListingUpdated EventType = "listing.updated"
	EventListingDeleted EventType = "listing.deleted"
	EventAgencyCreated  EventType = "agency.created"
	EventAgencyUpdated  EventType = "agency.updated"
	EventAgencyDeleted  EventType = "agency.deleted"
	EventUserRegistered EventType = "user.registered"
)

// AllEventTypes lists every event the services emit.
func AllEventTypes() []EventType {
	return []EventType{
		EventListingCreated,
		EventListingUpdated,
		EventListingDeleted,
		EventAgencyCreated,
		EventAgencyUpdated,
		EventAgencyDeleted,
		EventUserRegistered,
	}
}

// Actor identifies who triggered an event.
type Actor struct {
	UserID *string     `json:"userId,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorFor builds an Actor from the acting user, which may be nil.
func ActorFor(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	id := user.ID
	return Actor{UserID: &id, Role: user.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	AggregateID string    `json:"aggregateId"`
	AgencyID    *string   `json:"agencyId,omitempty"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// NewEvent stamps a fresh id on the event.
func NewEvent(eventType EventType, aggregateID string, agencyID *string, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		AgencyID:    agencyID,
		Actor:       actor,
		Timestamp:   at.UTC(),
		Payload:     payload,
	}
}

// ListingPayload is carried by listing events.
type ListingPayload struct {
	Title      string               `json:"title"`
	City       string               `json:"city"`
	Status     domain.ListingStatus `json:"status"`
	Price      float64              `json:"price"`
	Currency   string               `json:"currency"`
	ImageCount int                  `json:"imageCount"`
}

// NewListingPayload summarizes a listing.
func NewListingPayload(l *domain.Listing) ListingPayload {
	return ListingPayload{
		Title:      l.Title,
		City:       l.City,
		Status:     l.Status,
		Price:      l.Price,
		Currency:   l.Currency,
		ImageCount: len(l.Images),
	}
}

// AgencyPayload is carried by agency events.
type AgencyPayload struct {
	Name     string            `json:"name"`
	Slug     string            `json:"slug"`
	Plan     domain.AgencyPlan `json:"plan"`
	IsActive bool              `json:"isActive"`
}

// NewAgencyPayload summarizes an agency.
func NewAgencyPayload(a *domain.Agency) AgencyPayload {
	return AgencyPayload{Name: a.Name, Slug: a.Slug, Plan: a.Plan, IsActive: a.IsActive}
}

// UserRegisteredPayload is carried by user.registered.
type UserRegisteredPayload struct {
	Email       string             `json:"email"`
	Role        domain.Role        `json:"role"`
	AccountType domain.AccountType `json:"accountType"`
}
