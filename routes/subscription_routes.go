package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
	"github.com/wisdomAdida/edmerge/middleware"
)

func SubscriptionRoutes(api fiber.Router, h *handlers.Handler, secret string) {
	api.Post("/subscriptions/checkout", middleware.Protected(secret), h.SubscriptionCheckout)
}
