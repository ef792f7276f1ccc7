package domain

import "time"

// ListingStatus enumerates listing lifecycle states.
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusDraft    ListingStatus = "DRAFT"
	ListingStatusArchived ListingStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusDraft, ListingStatusArchived:
		return true
	}
	return false
}

// DefaultCurrency applies when a listing is saved without a currency.
const DefaultCurrency = "EUR"

// Listing is a property record owned by exactly one agency.
type Listing struct {
	ID          string
	Title       string
	Description *string
	City        string
	Country     string
	Price       float64
	Currency    string
	Status      ListingStatus
	Type        string
	AgencyID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Agency *Agency
	Images []ListingImage
}

// ListingImage is an image URL attached to a listing at a given position.
type ListingImage struct {
	ID        string
	ListingID string
	URL       string
	Position  int
	CreatedAt time.Time
}

// ListingSort enumerates gallery orderings.
type ListingSort string

const (
	ListingSortDateDesc  ListingSort = "DATE_DESC"
	ListingSortPriceAsc  ListingSort = "PRICE_ASC"
	ListingSortPriceDesc ListingSort = "PRICE_DESC"
)

// Valid reports whether s is a known ordering.
func (s ListingSort) Valid() bool {
	switch s {
	case ListingSortDateDesc, ListingSortPriceAsc, ListingSortPriceDesc:
		return true
	}
	return false
}

// ImagesFromURLs builds image rows positioned in the given order.
func ImagesFromURLs(listingID string, urls []string) []ListingImage {
	images := make([]ListingImage, 0, len(urls))
	for i, url := range urls {
		images = append(images, ListingImage{ListingID: listingID, URL: url, Position: i})
	}
	return images
}
