package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/spec-kit/agency-listings/internal/domain"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// ListingInput is the payload for create and full update.
type ListingInput struct {
	Title       string
	Description *string
	City        string
	Country     string
	// Price is the textual form of a JSON number or numeric string.
	Price    string
	Currency string
	Status   string
	Type     string
	AgencyID *string
	// ImageURLs nil means "leave images alone" on update.
	ImageURLs []string
}

// ListingQuery carries raw gallery query parameters.
type ListingQuery struct {
	SearchTerm string
	City       string
	Type       string
	Status     string
	AgencyID   string
	MinPrice   *float64
	MaxPrice   *float64
	Sort       string
	Limit      int
	Offset     int
}

func fieldError(field, message string) error {
	return apperrors.NewValidationError(message, map[string]any{"field": field})
}

// MaxListingPrice is the largest value the NUMERIC(14,2) price column holds.
const MaxListingPrice = 999_999_999_999.99

// ParsePrice accepts a non-negative finite decimal up to MaxListingPrice.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fieldError("price", "price is required")
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fieldError("price", "price must be a number")
	}
	if price < 0 {
		return 0, fieldError("price", "price must be greater than or equal to 0")
	}
	if price > MaxListingPrice {
		return 0, fieldError("price", "price is too large")
	}
	return price, nil
}

// NormalizeCurrency uppercases a 3-letter code, defaulting to EUR.
func NormalizeCurrency(raw string) (string, error) {
	cur := strings.ToUpper(strings.TrimSpace(raw))
	if cur == "" {
		return domain.DefaultCurrency, nil
	}
	if len(cur) != 3 {
		return "", fieldError("currency", "currency must be a 3-letter code")
	}
	for _, r := range cur {
		if r < 'A' || r > 'Z' {
			return "", fieldError("currency", "currency must be a 3-letter code")
		}
	}
	return cur, nil
}

// NormalizeStatus defaults to ACTIVE.
func NormalizeStatus(raw string) (domain.ListingStatus, error) {
	status := domain.ListingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if status == "" {
		return domain.ListingStatusActive, nil
	}
	if !status.Valid() {
		return "", fieldError("status", "status must be one of ACTIVE, DRAFT, ARCHIVED")
	}
	return status, nil
}

// CleanImageURLs trims every URL and drops empty ones. nil stays nil.
func CleanImageURLs(urls []string) []string {
	if urls == nil {
		return nil
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// toListing validates the input and returns an unsaved listing without an agency.
func (in ListingInput) toListing() (*domain.Listing, error) {
	l := &domain.Listing{
		Title:       strings.TrimSpace(in.Title),
		Description: trimmedPtr(in.Description),
		City:        strings.TrimSpace(in.City),
		Country:     strings.TrimSpace(in.Country),
		Type:        strings.TrimSpace(in.Type),
	}
	switch {
	case l.Title == "":
		return nil, fieldError("title", "title is required")
	case l.City == "":
		return nil, fieldError("city", "city is required")
	case l.Country == "":
		return nil, fieldError("country", "country is required")
	case l.Type == "":
		return nil, fieldError("type", "type is required")
	}

	var err error
	if l.Price, err = ParsePrice(in.Price); err != nil {
		return nil, err
	}
	if l.Currency, err = NormalizeCurrency(in.Currency); err != nil {
		return nil, err
	}
	if l.Status, err = NormalizeStatus(in.Status); err != nil {
		return nil, err
	}
	return l, nil
}
