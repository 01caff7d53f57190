package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker func(ctx context.Context) error

type HealthHandler struct {
	startTime time.Time
	version   string
	checks    map[string]ReadinessChecker
}

func NewHealthHandler(version string, checks map[string]ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		checks:    checks,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "etf-go-api",
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
		"time":    time.Now(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{"api": "ok"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != fiber.StatusOK {
		state = "not ready"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"checks": checks,
	})
}
