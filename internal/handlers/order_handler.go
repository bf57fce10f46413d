package handlers

import (
	"bytes"
	"log"

	"ocha/internal/middleware"
	"ocha/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HeaderIdempotencyKey makes POST /orders safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	guards  Guards
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, guards Guards) *OrderHandler {
	return &OrderHandler{
		service: service,
		guards:  guards,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders", h.guards.Auth)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/me", h.HandleGetOwnOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Get("/:id/items", h.HandleGetOrderItems)
	orderRoutes.Patch("/:id/status", h.guards.Admin, h.HandleUpdateOrderStatus)
	orderRoutes.Delete("/:id", h.HandleDeleteOrder)

	router.Get("/order-stats", h.guards.Auth, h.guards.Admin, h.HandleOrderStats)
}

// HandleCreateOrder prices the cart and creates the order. A replayed
// Idempotency-Key answers 200 with the first order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var in services.CreateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}

	actor := middleware.Actor(c)
	order, replayed, err := h.service.CreateOrder(c.UserContext(), actor.UserID, in, c.Get(HeaderIdempotencyKey))
	if err != nil {
		log.Printf("Error creating order for user %s: %v", actor.UserID, err)
		return err
	}

	status := fiber.StatusCreated
	if replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{"order": order})
}

// HandleGetOwnOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleGetOwnOrders(c *fiber.Ctx) error {
	return listOwnOrders(c, h.service)
}

func listOwnOrders(c *fiber.Ctx, service *services.OrderService) error {
	page, err := service.GetOwnOrders(
		c.UserContext(),
		middleware.Actor(c).UserID,
		c.Query("status"),
		c.Query("store_id"),
		pageFromQuery(c),
	)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrderByID(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"order": order})
}

// HandleGetOrderItems returns the order's items with their products.
func (h *OrderHandler) HandleGetOrderItems(c *fiber.Ctx) error {
	items, err := h.service.ListItems(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var updateData struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		return badBody(err)
	}

	order, err := h.service.SetStatus(c.UserContext(), orderID, updateData.Status)
	if err != nil {
		log.Printf("Error updating order status for order %s: %v", orderID, err)
		return err
	}
	return c.JSON(fiber.Map{"order": order})
}

// HandleDeleteOrder deletes the order and its items.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	if err := h.service.DeleteOrder(c.UserContext(), middleware.Actor(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleOrderStats returns the per-user rollup, as JSON or as a workbook
// with ?format=xlsx.
func (h *OrderHandler) HandleOrderStats(c *fiber.Ctx) error {
	stats, err := h.service.OrderStatsByUser(c.UserContext())
	if err != nil {
		return err
	}

	if c.Query("format") != "xlsx" {
		return c.JSON(fiber.Map{"stats": stats})
	}

	var buf bytes.Buffer
	if err := services.WriteStatsXLSX(&buf, stats); err != nil {
		return err
	}
	c.Attachment("order-stats.xlsx")
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(buf.Bytes())
}
