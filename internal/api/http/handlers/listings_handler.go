package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-listings/internal/api/dto"
	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/contracts"
	"github.com/spec-kit/agency-listings/internal/service"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// TotalCountHeader carries the unpaged result count of list endpoints.
const TotalCountHeader = "X-Total-Count"

// ListingsHandler manages listing endpoints.
type ListingsHandler struct {
	service   *service.ListingService
	validator *contracts.Validator
}

// NewListingsHandler constructs handler.
func NewListingsHandler(listingService *service.ListingService, validator *contracts.Validator) *ListingsHandler {
	return &ListingsHandler{service: listingService, validator: validator}
}

// List GET /listings.
func (h *ListingsHandler) List(c *fiber.Ctx) error {
	query, err := parseListingQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), auth.UserFromContext(c), query)
	if err != nil {
		return err
	}
	c.Set(TotalCountHeader, strconv.Itoa(page.Total))
	return c.JSON(dto.NewListingResponses(page.Listings))
}

// Create POST /listings.
func (h *ListingsHandler) Create(c *fiber.Ctx) error {
	input, err := h.bindListing(c)
	if err != nil {
		return err
	}
	listing, err := h.service.Create(c.UserContext(), auth.UserFromContext(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewListingResponse(listing))
}

// Get GET /listings/:id.
func (h *ListingsHandler) Get(c *fiber.Ctx) error {
	listing, err := h.service.Get(c.UserContext(), auth.UserFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewListingResponse(listing))
}

// Update PUT /listings/:id.
func (h *ListingsHandler) Update(c *fiber.Ctx) error {
	input, err := h.bindListing(c)
	if err != nil {
		return err
	}
	listing, err := h.service.Update(c.UserContext(), auth.UserFromContext(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewListingResponse(listing))
}

// Delete DELETE /listings/:id.
func (h *ListingsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), auth.UserFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *ListingsHandler) bindListing(c *fiber.Ctx) (service.ListingInput, error) {
	var req dto.ListingRequest
	if err := bindJSON(c, h.validator, contracts.SchemaListing, &req); err != nil {
		return service.ListingInput{}, err
	}
	return service.ListingInput{
		Title:       req.Title,
		Description: req.Description,
		City:        req.City,
		Country:     req.Country,
		Price:       req.PriceText(),
		Currency:    dto.Deref(req.Currency),
		Status:      dto.Deref(req.Status),
		Type:        req.Type,
		AgencyID:    req.AgencyID,
		ImageURLs:   req.ImageURLs,
	}, nil
}

func parseListingQuery(c *fiber.Ctx) (service.ListingQuery, error) {
	q := service.ListingQuery{
		SearchTerm: strings.TrimSpace(c.Query("q")),
		City:       strings.TrimSpace(c.Query("city")),
		Type:       strings.TrimSpace(c.Query("type")),
		Status:     strings.TrimSpace(c.Query("status")),
		AgencyID:   strings.TrimSpace(c.Query("agencyId")),
		Sort:       strings.TrimSpace(c.Query("sort")),
	}
	var err error
	if q.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = queryInt(c, "offset"); err != nil {
		return q, err
	}
	return q, nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be a number", map[string]any{"field": key})
	}
	return &v, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError(key+" must be a non-negative integer", map[string]any{"field": key})
	}
	return v, nil
}
