package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/agency-listings/internal/api/http/handlers"
	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Agencies    *handlers.AgenciesHandler
	Listings    *handlers.ListingsHandler
	Uploads     *handlers.UploadsHandler
	Session     *auth.SessionMiddleware
	Metrics     *observability.Metrics
	RateLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/files/*", cfg.Uploads.ServeFile)

	api := app.Group("", cfg.Session.Handle)

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	authGroup := api.Group("/auth")
	authGroup.Post("/register", limiter, cfg.Auth.Register)
	authGroup.Post("/login", limiter, cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Auth.Me)

	agencies := api.Group("/agencies", auth.RequireAuthenticated())
	agencies.Get("", cfg.Agencies.List)
	agencies.Post("", cfg.Agencies.Create)
	agencies.Get("/:id", cfg.Agencies.Get)
	agencies.Put("/:id", cfg.Agencies.Update)
	agencies.Delete("/:id", cfg.Agencies.Delete)

	listings := api.Group("/listings")
	listings.Get("", cfg.Listings.List)
	listings.Post("", cfg.Listings.Create)
	listings.Get("/:id", cfg.Listings.Get)
	listings.Put("/:id", cfg.Listings.Update)
	listings.Delete("/:id", cfg.Listings.Delete)

	uploads := api.Group("/uploads", auth.RequireAuthenticated(), auth.RequireAgencyMember())
	uploads.Post("/listing-images", cfg.Uploads.UploadListingImages)
}
