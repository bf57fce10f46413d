package handlers

import (
	"log"
	"strconv"
	"strings"
	"time"

	"ocha/internal/apperr"
	"ocha/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StoreHandler handles HTTP requests for stores.
type StoreHandler struct {
	service *services.StoreService
	guards  Guards
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(service *services.StoreService, guards Guards) *StoreHandler {
	return &StoreHandler{service: service, guards: guards}
}

// RegisterRoutes registers the store routes. Reads are public, writes need an admin.
func (h *StoreHandler) RegisterRoutes(router fiber.Router) {
	storeRoutes := router.Group("/stores")
	storeRoutes.Get("/", h.HandleGetStores)
	storeRoutes.Get("/nearby", h.HandleGetNearbyStores)
	storeRoutes.Get("/:id", h.HandleGetStoreByID)
	storeRoutes.Get("/:id/opening", h.HandleGetStoreOpening)
	storeRoutes.Post("/", h.guards.Auth, h.guards.Admin, h.HandleCreateStore)
	storeRoutes.Patch("/:id", h.guards.Auth, h.guards.Admin, h.HandleUpdateStore)
	storeRoutes.Delete("/:id", h.guards.Auth, h.guards.Admin, h.HandleDeleteStore)
}

// HandleGetStores lists stores. With ?near=lng,lat it switches to a radius
// search ordered by distance.
func (h *StoreHandler) HandleGetStores(c *fiber.Ctx) error {
	near := c.Query("near")
	if near == "" {
		page, err := h.service.ListStores(c.UserContext(), pageFromQuery(c))
		if err != nil {
			return err
		}
		return c.JSON(page)
	}

	lng, lat, err := parseNear(near)
	if err != nil {
		return err
	}
	return h.nearby(c, lng, lat)
}

// HandleGetNearbyStores is the ?lng=&lat= form of the radius search.
func (h *StoreHandler) HandleGetNearbyStores(c *fiber.Ctx) error {
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	if errLng != nil || errLat != nil {
		return apperr.Validation(apperr.CodeInvalidQuery, "lng and lat are required numbers")
	}
	return h.nearby(c, lng, lat)
}

func (h *StoreHandler) nearby(c *fiber.Ctx, lng, lat float64) error {
	// A missing or unparsable radius becomes 0, which means the default.
	radius, _ := strconv.ParseFloat(c.Query("radius"), 64)
	page, err := h.service.FindNearby(c.UserContext(), lng, lat, radius, pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// parseNear reads "lng,lat".
func parseNear(near string) (float64, float64, error) {
	parts := strings.Split(near, ",")
	if len(parts) != 2 {
		return 0, 0, apperr.Validation(apperr.CodeInvalidQuery, "near must be formatted as lng,lat")
	}
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLng != nil || errLat != nil {
		return 0, 0, apperr.Validation(apperr.CodeInvalidQuery, "near must be formatted as lng,lat")
	}
	return lng, lat, nil
}

// HandleGetStoreByID retrieves a single store.
func (h *StoreHandler) HandleGetStoreByID(c *fiber.Ctx) error {
	store, err := h.service.GetStoreByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"store": store})
}

// HandleGetStoreOpening tells whether the store is open at ?at= (RFC 3339,
// default now).
func (h *StoreHandler) HandleGetStoreOpening(c *fiber.Ctx) error {
	at := time.Now()
	if raw := c.Query("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperr.Validation(apperr.CodeInvalidQuery, "at must be an RFC 3339 timestamp")
		}
		at = t
	}
	opening, err := h.service.OpeningAt(c.UserContext(), c.Params("id"), at)
	if err != nil {
		return err
	}
	return c.JSON(opening)
}

// HandleCreateStore opens a new store.
func (h *StoreHandler) HandleCreateStore(c *fiber.Ctx) error {
	var in services.StoreInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	store, err := h.service.CreateStore(c.UserContext(), in)
	if err != nil {
		log.Printf("Error creating store: %v", err)
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"store": store})
}

// HandleUpdateStore applies a partial update.
func (h *StoreHandler) HandleUpdateStore(c *fiber.Ctx) error {
	var in services.StoreInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(err)
	}
	store, err := h.service.UpdateStore(c.UserContext(), c.Params("id"), in)
	if err != nil {
		log.Printf("Error updating store %s: %v", c.Params("id"), err)
		return err
	}
	return c.JSON(fiber.Map{"store": store})
}

// HandleDeleteStore removes a store that no order references.
func (h *StoreHandler) HandleDeleteStore(c *fiber.Ctx) error {
	if err := h.service.DeleteStore(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
