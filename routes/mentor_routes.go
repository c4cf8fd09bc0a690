package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wisdomAdida/edmerge/handlers"
	"github.com/wisdomAdida/edmerge/middleware"
	"github.com/wisdomAdida/edmerge/models"
)

func MentorRoutes(api fiber.Router, h *handlers.Handler, secret string) {
	// mentees book too; participation is checked per mentorship
	api.Post("/mentor/mentorships/:id/sessions", middleware.Protected(secret), h.BookSession)

	mentor := api.Group("/mentor", middleware.Protected(secret), middleware.RolesRequired(models.RoleMentor))
	mentor.Put("/sessions/:id/status", h.UpdateSessionStatus)
	mentor.Get("/sessions", h.ListMentorSessions)
	mentor.Get("/earnings", h.GetMentorEarnings)
	mentor.Post("/withdrawals", h.RequestMentorWithdrawal)
	mentor.Get("/withdrawals", h.ListWithdrawals)
}
