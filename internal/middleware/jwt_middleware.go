package middleware

import (
	"log"
	"strings"

	"ocha/internal/apperr"
	"ocha/internal/models"
	"ocha/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	LocalActor = "actor"
	LocalUser  = "user"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// token must belong to a user that still exists.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthorized("Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) || parts[1] == "" {
			return apperr.Unauthorized("Authorization header format must be 'Bearer <token>'")
		}

		user, err := authService.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return err
		}

		// Store the caller in Fiber context for subsequent handlers
		c.Locals(LocalActor, models.Actor{UserID: user.ID, Role: user.Role})
		c.Locals(LocalUser, user)

		return c.Next()
	}
}

// AdminOnly rejects callers without the admin role. It must run after AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Actor(c).IsAdmin() {
			return apperr.Forbidden("admin role required")
		}
		return c.Next()
	}
}

// Actor returns the caller resolved by AuthRequired, or the zero Actor.
func Actor(c *fiber.Ctx) models.Actor {
	actor, _ := c.Locals(LocalActor).(models.Actor)
	return actor
}

// User returns the authenticated user, or nil.
func User(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}
