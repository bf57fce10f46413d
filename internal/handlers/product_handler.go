package handlers

import (
	"log"

	"ocha/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service *services.ProductService
	guards  Guards
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, guards Guards) *ProductHandler {
	return &ProductHandler{service: service, guards: guards}
}

// RegisterRoutes registers the product routes. Reads are public, writes need an admin.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/active", h.HandleGetActiveProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.guards.Auth, h.guards.Admin, h.HandleCreateProduct)
	productRoutes.Patch("/:id", h.guards.Auth, h.guards.Admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.guards.Auth, h.guards.Admin, h.HandleDeleteProduct)
}

// HandleGetProducts lists one page of products; ?active=true hides inactive ones.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	page, err := h.service.GetAllProducts(c.UserContext(), c.QueryBool("active", false), pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// HandleGetActiveProducts lists every product on sale.
func (h *ProductHandler) HandleGetActiveProducts(c *fiber.Ctx) error {
	products, err := h.service.GetActiveProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"products": products})
}

// HandleGetProductByID retrieves a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"product": product})
}

// HandleCreateProduct adds a product to the catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"product": product})
}

// HandleUpdateProduct applies a partial update.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), in)
	if err != nil {
		log.Printf("Error updating product %s: %v", c.Params("id"), err)
		return err
	}
	return c.JSON(fiber.Map{"product": product})
}

// HandleDeleteProduct removes a product. Past orders keep their snapshots.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
