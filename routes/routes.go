package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
)

// Setup mounts every API route on app. secret verifies bearer tokens.
func Setup(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api")

	EarningsRoutes(api, h, secret)
	MentorRoutes(api, h, secret)
	PaymentRoutes(api, h, secret)
	SubscriptionRoutes(api, h, secret)
	AdminRoutes(api, h, secret)
	NotificationRoutes(api, h)
}
