package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-listings/internal/api/dto"
	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/contracts"
	"github.com/spec-kit/agency-listings/internal/service"
)

// AgenciesHandler manages agency endpoints.
type AgenciesHandler struct {
	service   *service.AgencyService
	validator *contracts.Validator
}

// NewAgenciesHandler constructs handler.
func NewAgenciesHandler(agencyService *service.AgencyService, validator *contracts.Validator) *AgenciesHandler {
	return &AgenciesHandler{service: agencyService, validator: validator}
}

// List GET /agencies.
func (h *AgenciesHandler) List(c *fiber.Ctx) error {
	agencies, err := h.service.List(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAgencyResponses(agencies))
}

// Create POST /agencies.
func (h *AgenciesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAgencyRequest
	if err := bindJSON(c, h.validator, contracts.SchemaAgencyCreate, &req); err != nil {
		return err
	}
	agency, err := h.service.Create(c.UserContext(), auth.UserFromContext(c), service.AgencyCreateInput{
		Name:    req.Name,
		City:    req.City,
		Country: req.Country,
		Email:   req.Email,
		Phone:   req.Phone,
		Plan:    dto.Deref(req.Plan),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAgencyResponse(agency))
}

// Get GET /agencies/:id.
func (h *AgenciesHandler) Get(c *fiber.Ctx) error {
	agency, err := h.service.Get(c.UserContext(), auth.UserFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAgencyResponse(agency))
}

// Update PUT /agencies/:id.
func (h *AgenciesHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateAgencyRequest
	if err := bindJSON(c, h.validator, contracts.SchemaAgencyUpdate, &req); err != nil {
		return err
	}
	agency, err := h.service.Update(c.UserContext(), auth.UserFromContext(c), c.Params("id"), service.AgencyPatch{
		Name:     req.Name,
		City:     req.City,
		Country:  req.Country,
		Email:    req.Email,
		Phone:    req.Phone,
		Plan:     req.Plan,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAgencyResponse(agency))
}

// Delete DELETE /agencies/:id.
func (h *AgenciesHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), auth.UserFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
