package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
)

// NotificationRoutes serves the live notification socket. The socket
// authenticates with its first frame, not a header.
func NotificationRoutes(api fiber.Router, h *handlers.Handler) {
	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(h.ServeWs))
}
