package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
	"github.com/wisdomAdida/edmerge/middleware"
	"github.com/wisdomAdida/edmerge/models"
)

func PaymentRoutes(api fiber.Router, h *handlers.Handler, secret string) {
	api.Post("/stripe/webhook", h.StripeWebhook)
	api.Post("/flutterwave/webhook", h.FlutterwaveWebhook)

	api.Post("/payments/checkout", middleware.Protected(secret), h.StartCheckout)
	api.Post("/research/:projectId/checkout", middleware.Protected(secret), h.StartResearchCheckout)
	api.Post("/research/:projectId/purchase", middleware.Protected(secret), h.PurchaseResearch)

	flutterwave := api.Group("/flutterwave", middleware.Protected(secret),
		middleware.RolesRequired(models.RoleTutor, models.RoleMentor, models.RoleResearcher))
	flutterwave.Post("/validate-account", h.ValidateAccount)
	flutterwave.Post("/withdraw", h.FlutterwaveWithdraw)
}
