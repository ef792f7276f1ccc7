package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// ListingRequest is the create and full-update payload.
type ListingRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	City        string          `json:"city"`
	Country     string          `json:"country"`
	Price       json.RawMessage `json:"price"`
	Currency    *string         `json:"currency"`
	Status      *string         `json:"status"`
	Type        string          `json:"type"`
	AgencyID    *string         `json:"agencyId"`
	ImageURLs   []string        `json:"imageUrls"`
}

// PriceText returns the price as text whether it was sent as a number or a string.
func (r ListingRequest) PriceText() string {
	raw := bytes.TrimSpace(r.Price)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

// ListingImageResponse is one image of a listing.
type ListingImageResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// ListingResponse is the listing representation with its agency and images.
type ListingResponse struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description *string                `json:"description"`
	City        string                 `json:"city"`
	Country     string                 `json:"country"`
	Price       float64                `json:"price"`
	Currency    string                 `json:"currency"`
	Status      domain.ListingStatus   `json:"status"`
	Type        string                 `json:"type"`
	AgencyID    string                 `json:"agencyId"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	Agency      *AgencySummary         `json:"agency"`
	Images      []ListingImageResponse `json:"images"`
}

// NewListingResponse maps a domain listing.
func NewListingResponse(l *domain.Listing) ListingResponse {
	images := make([]ListingImageResponse, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, ListingImageResponse{ID: img.ID, URL: img.URL, Position: img.Position})
	}
	return ListingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		City:        l.City,
		Country:     l.Country,
		Price:       l.Price,
		Currency:    l.Currency,
		Status:      l.Status,
		Type:        l.Type,
		AgencyID:    l.AgencyID,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		Agency:      NewAgencySummary(l.Agency),
		Images:      images,
	}
}

// NewListingResponses maps a slice, never returning nil.
func NewListingResponses(listings []domain.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, NewListingResponse(&listings[i]))
	}
	return out
}

// UploadResponse lists the public URLs of stored files.
type UploadResponse struct {
	URLs []string `json:"urls"`
}
