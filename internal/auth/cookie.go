package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// CookieSettings describes how the session cookie is written.
type CookieSettings struct {
	Name   string
	Secure bool
}

// SetSessionCookie writes the session token so it lives exactly as long as the session.
func SetSessionCookie(c *fiber.Ctx, settings CookieSettings, token string, session domain.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     settings.Name,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.ExpiresAt.Sub(session.IssuedAt).Seconds()),
		HTTPOnly: true,
		Secure:   settings.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, settings CookieSettings) {
	c.Cookie(&fiber.Cookie{
		Name:     settings.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   settings.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
