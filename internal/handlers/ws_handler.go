package handlers

import (
	"log"

	"ocha/internal/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// EventsHandler streams event envelopes to websocket clients.
type EventsHandler struct {
	hub    *events.Hub
	guards Guards
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub *events.Hub, guards Guards) *EventsHandler {
	return &EventsHandler{hub: hub, guards: guards}
}

// RegisterRoutes registers GET /ws for admins.
func (h *EventsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.guards.Auth, h.guards.Admin, requireUpgrade, websocket.New(h.stream))
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// stream pushes every envelope as a text frame until the client goes away
// or the hub shuts down.
func (h *EventsHandler) stream(conn *websocket.Conn) {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	// Client frames are ignored; reading only detects the disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("websocket write failed: %v", err)
				return
			}
		case <-gone:
			return
		}
	}
}
