package routes

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/economy/internal/middleware"
)

const healthCheckTimeout = 2 * time.Second

// RegisterHealthRoutes adds a readiness endpoint pinging every configured check.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
		defer cancel()

		checks := fiber.Map{}
		var failed []string
		for name, check := range d.Checks {
			if err := check.Ping(ctx); err != nil {
				checks[name] = err.Error()
				failed = append(failed, name)
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		if len(failed) > 0 {
			sort.Strings(failed)
			c.Locals(middleware.FailedChecksKey, failed)
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
