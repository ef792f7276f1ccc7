package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/spec-kit/agency-listings/internal/config"
	"github.com/spec-kit/agency-listings/internal/observability"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

func newMiddlewareApp(t *testing.T, logger *zap.Logger, cfg MiddlewareConfig) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, observability.NewMetrics(), cfg)
	return app
}

func call(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func TestErrorHandling_DomainErrorShape(t *testing.T) {
	app := newMiddlewareApp(t, zap.NewNop(), MiddlewareConfig{})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	})
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return apperrors.NewForbidden("nope")
	})

	resp, body := call(t, app, httptest.NewRequest(http.MethodGet, "/invalid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "title is required", body["error"])
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Equal(t, map[string]any{"field": "title"}, body["details"])

	resp, body = call(t, app, httptest.NewRequest(http.MethodGet, "/forbidden", nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])
	assert.NotContains(t, body, "details")
}

func TestErrorHandling_RecoversPanicsAndLogs5xx(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := newMiddlewareApp(t, zap.New(core), MiddlewareConfig{})
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})
	app.Get("/db", func(c *fiber.Ctx) error {
		return errors.New("connection reset")
	})

	resp, body := call(t, app, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())

	resp, body = call(t, app, httptest.NewRequest(http.MethodGet, "/db", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal server error", body["error"], "causes never leak to clients")
	assert.GreaterOrEqual(t, logs.FilterMessage("request failed").Len(), 2)
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	app := newMiddlewareApp(t, zap.NewNop(), MiddlewareConfig{Timeout: time.Second})
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"deadline": ok})
	})

	_, body := call(t, app, httptest.NewRequest(http.MethodGet, "/deadline", nil))
	assert.Equal(t, true, body["deadline"])
}

func TestCORS_WildcardDisablesCredentials(t *testing.T) {
	app := newMiddlewareApp(t, zap.NewNop(), MiddlewareConfig{CORSOrigins: "*"})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	resp, _ := call(t, app, req)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRateLimiterStore_PerIdentifierBuckets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newRateLimiterStore(rate.Every(time.Minute), 2, 5*time.Minute, clock)

	assert.True(t, store.Allow("10.0.0.1"))
	assert.True(t, store.Allow("10.0.0.1"))
	assert.False(t, store.Allow("10.0.0.1"))
	assert.True(t, store.Allow("10.0.0.2"), "buckets are per client")

	clock.Advance(time.Minute)
	assert.True(t, store.Allow("10.0.0.1"))
	assert.False(t, store.Allow("10.0.0.1"))
}

func TestRateLimiterStore_ForgetsIdleClients(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newRateLimiterStore(rate.Every(time.Minute), 1, time.Minute, clock)

	store.Allow("10.0.0.1")
	store.Allow("10.0.0.2")
	assert.Equal(t, 2, store.size())

	clock.Advance(2 * time.Minute)
	store.Allow("10.0.0.3")
	assert.Equal(t, 1, store.size())
}

func TestNewRateLimiter_DisabledPassesThrough(t *testing.T) {
	app := fiber.New()
	app.Post("/login", NewRateLimiter(config.RateLimitConfig{}, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
}

func TestRequestTimeout_ExpiredContextIsInternalError(t *testing.T) {
	app := newMiddlewareApp(t, zap.NewNop(), MiddlewareConfig{Timeout: 10 * time.Millisecond})
	app.Get("/slow", func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	resp, body := call(t, app, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}
