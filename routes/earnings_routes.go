package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
	"github.com/wisdomAdida/edmerge/middleware"
	"github.com/wisdomAdida/edmerge/models"
)

func EarningsRoutes(api fiber.Router, h *handlers.Handler, secret string) {
	api.Get("/tutor/earnings", middleware.Protected(secret), middleware.RolesRequired(models.RoleTutor), h.GetEarnings)
	api.Get("/researcher/earnings", middleware.Protected(secret), middleware.RolesRequired(models.RoleResearcher), h.GetEarnings)

	withdrawals := api.Group("/withdrawals", middleware.Protected(secret), middleware.RolesRequired(models.RoleTutor, models.RoleResearcher))
	withdrawals.Post("", h.RequestWithdrawal)
	withdrawals.Get("", h.ListWithdrawals)
}
