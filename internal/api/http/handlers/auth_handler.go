package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-listings/internal/api/dto"
	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/contracts"
	"github.com/spec-kit/agency-listings/internal/service"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	service   *service.AuthService
	validator *contracts.Validator
	cookie    auth.CookieSettings
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, validator *contracts.Validator, cookie auth.CookieSettings) *AuthHandler {
	return &AuthHandler{service: authService, validator: validator, cookie: cookie}
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, h.validator, contracts.SchemaRegister, &req); err != nil {
		return err
	}
	result, err := h.service.Register(c.UserContext(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        dto.Deref(req.Name),
		AccountType: dto.Deref(req.AccountType),
		AgencyName:  dto.Deref(req.AgencyName),
		City:        dto.Deref(req.City),
		Country:     dto.Deref(req.Country),
		Phone:       dto.Deref(req.Phone),
	})
	if err != nil {
		return err
	}
	auth.SetSessionCookie(c, h.cookie, result.Token, result.Session)

	resp := dto.RegisterResponse{
		User:        dto.NewUserResponse(result.User),
		AccountType: result.AccountType,
	}
	if result.Agency != nil {
		agency := dto.NewAgencyResponse(result.Agency)
		resp.Agency = &agency
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, h.validator, contracts.SchemaLogin, &req); err != nil {
		return err
	}
	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(c, h.cookie, result.Token, result.Session)
	return c.JSON(dto.UserEnvelope{User: dto.NewUserResponse(result.User)})
}

// Logout POST /auth/logout. Always clears the cookie, even for anonymous callers.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	auth.ClearSessionCookie(c, h.cookie)
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if err := h.service.Logout(c.UserContext(), principal.Session); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(dto.UserEnvelope{User: dto.NewUserResponse(user)})
}
