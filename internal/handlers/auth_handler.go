package handlers

import (
	"log"

	"ocha/internal/middleware"
	"ocha/internal/services"
	"ocha/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Guards are the access control middlewares attached to protected routes.
type Guards struct {
	Auth  fiber.Handler
	Admin fiber.Handler
}

// NewGuards builds the JWT and admin gates from the auth service.
func NewGuards(authService *services.AuthService) Guards {
	return Guards{
		Auth:  middleware.AuthRequired(authService),
		Admin: middleware.AdminOnly(),
	}
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService  *services.AuthService
	orderService *services.OrderService
	validate     *validation.Validator
	guards       Guards
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, orderService *services.OrderService, validate *validation.Validator, guards Guards) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		orderService: orderService,
		validate:     validate,
		guards:       guards,
	}
}

// RegisterRoutes registers the authentication and account routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/users", h.HandleRegister)
	router.Post("/auth/login", h.HandleLogin)

	me := router.Group("/users/me", h.guards.Auth)
	me.Get("/", h.HandleMe)
	me.Get("/orders", h.HandleMyOrders)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}

	user, token, err := h.authService.RegisterUser(c.UserContext(), in)
	if err != nil {
		log.Printf("Error registering user: %v", err)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
		"user":    user.Summary(),
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return err
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user.Summary(),
	})
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": middleware.User(c)})
}

// HandleMyOrders is the same listing as GET /orders/me.
func (h *AuthHandler) HandleMyOrders(c *fiber.Ctx) error {
	return listOwnOrders(c, h.orderService)
}
