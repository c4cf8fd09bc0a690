package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
	"github.com/wisdomAdida/edmerge/middleware"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler, secret string) {
	admin := api.Group("/admin", middleware.Protected(secret), middleware.AdminRequired())

	admin.Get("/withdrawals", h.ListWithdrawalsForAdmin)
	admin.Put("/withdrawals/:id", h.ProcessWithdrawal)

	keys := admin.Group("/subscription-keys")
	keys.Post("", h.GenerateSubscriptionKeys)
	keys.Post("/:id/revoke", h.RevokeSubscriptionKey)
}
