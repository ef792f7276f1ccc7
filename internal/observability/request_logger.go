package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// RequestIDKey is the Locals key the request id middleware stores its value under.
const RequestIDKey = "request_id"

// RequestLogger logs one line per request and feeds the request metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		// Ctx strings alias fasthttp buffers that are reused after the request.
		method := utils.CopyString(c.Method())
		route := routeLabel(c)

		status := c.Response().StatusCode()
		if err != nil {
			de := apperrors.ToDomainError(err)
			status = de.HTTPStatus
			metrics.RecordError(route, method, de.Code)
		}
		metrics.RecordRequest(route, method, status, latency)

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", utils.CopyString(c.IP())),
		}
		if rid, ok := c.Locals(RequestIDKey).(string); ok && rid != "" {
			fields = append(fields, zap.String("request_id", utils.CopyString(rid)))
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}

// routeLabel uses the matched route pattern to keep metric cardinality bounded.
func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return "unmatched"
}
