// Package server assembles the Fiber application and its route table.
package server

import (
	"ocha/internal/database"
	"ocha/internal/events"
	"ocha/internal/handlers"
	"ocha/internal/services"
	"ocha/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Deps are the services the routes are served from.
type Deps struct {
	DB             *gorm.DB
	Validator      *validation.Validator
	AuthService    *services.AuthService
	OrderService   *services.OrderService
	ProductService *services.ProductService
	StoreService   *services.StoreService
	// Hub enables GET /api/v1/ws when set.
	Hub *events.Hub

	AppName     string
	Broker      string
	CORSOrigins string
	RequestLog  bool
}

// New returns the configured Fiber app with every route registered.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      d.AppName,
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	if d.RequestLog {
		app.Use(logger.New()) // Request logger
	}
	origins := d.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.HeaderIdempotencyKey,
	}))

	guards := handlers.NewGuards(d.AuthService)

	// --- Health Check Endpoint ---
	handlers.NewHealthHandler(func() error { return database.Ping(d.DB) }, d.Broker).RegisterRoutes(app)

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(d.AuthService, d.OrderService, d.Validator, guards).RegisterRoutes(apiV1)
	handlers.NewProductHandler(d.ProductService, guards).RegisterRoutes(apiV1)
	handlers.NewStoreHandler(d.StoreService, guards).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(d.OrderService, guards).RegisterRoutes(apiV1)
	if d.Hub != nil {
		handlers.NewEventsHandler(d.Hub, guards).RegisterRoutes(apiV1)
	}

	return app
}
