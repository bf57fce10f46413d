package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness and the state of the backing services.
type HealthHandler struct {
	pingDB func() error
	broker string
}

// NewHealthHandler creates a new HealthHandler. pingDB is called on every check.
func NewHealthHandler(pingDB func() error, broker string) *HealthHandler {
	return &HealthHandler{pingDB: pingDB, broker: broker}
}

// RegisterRoutes registers GET /health.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth always answers 200; a failing database shows up as "down".
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	database := "up"
	if err := h.pingDB(); err != nil {
		database = "down"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": database,
		"events":   h.broker,
	})
}
