package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FailedChecksKey names the Locals entry where the health route leaves the
// dependency checks that failed, as a []string.
const FailedChecksKey = "failed_checks"

// Audit logs one line per ops request. Handler errors log at Error, 5xx
// answers at Warn with any failed checks, and successful health probes and
// metric scrapes at Debug since they arrive every few seconds.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(RequestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if failed, _ := c.Locals(FailedChecksKey).([]string); len(failed) > 0 {
			attrs = append(attrs, slog.Any("failed_checks", failed))
		}

		switch {
		case err != nil:
			logger.Error("ops request failed", append(attrs, slog.Any("error", err))...)
		case status >= fiber.StatusInternalServerError:
			logger.Warn("ops request unhealthy", attrs...)
		case c.Path() == "/healthz" || c.Path() == "/metrics":
			logger.Debug("ops request", attrs...)
		default:
			logger.Info("ops request", attrs...)
		}
		return err
	}
}
