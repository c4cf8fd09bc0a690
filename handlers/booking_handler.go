package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wisdomAdida/edmerge/services"
)

type BookSessionInput struct {
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"required,datetime=15:04"`
	Duration      int    `json:"duration" validate:"required,min=1,max=240"`
}

type SessionStatusInput struct {
	Status string `json:"status" validate:"required,oneof=completed canceled"`
}

// BookSession lets either participant of a mentorship schedule a session.
func (h *Handler) BookSession(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	mentorshipID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "mentorship ID")
	}
	var req BookSessionInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	// Session times are wall-clock UTC.
	date, _ := time.ParseInLocation("2006-01-02", req.ScheduledDate, time.UTC)

	session, err := h.mentors.BookSession(c.UserContext(), services.BookSessionRequest{
		MentorshipID:  mentorshipID,
		RequesterID:   userID,
		ScheduledDate: date,
		ScheduledTime: req.ScheduledTime,
		Duration:      req.Duration,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *Handler) UpdateSessionStatus(c *fiber.Ctx) error {
	mentorID, err := currentUser(c)
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "session ID")
	}
	var req SessionStatusInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	session, err := h.mentors.UpdateSessionStatus(c.UserContext(), sessionID, mentorID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *Handler) ListMentorSessions(c *fiber.Ctx) error {
	mentorID, err := currentUser(c)
	if err != nil {
		return err
	}
	sessions, err := h.mentors.ListSessions(c.UserContext(), mentorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orEmpty(sessions))
}

func (h *Handler) GetMentorEarnings(c *fiber.Ctx) error {
	mentorID, err := currentUser(c)
	if err != nil {
		return err
	}
	earnings, err := h.mentors.Earnings(c.UserContext(), mentorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(earnings)
}

// RequestMentorWithdrawal is RequestWithdrawal with the extra rule that every
// past session must be resolved first.
func (h *Handler) RequestMentorWithdrawal(c *fiber.Ctx) error {
	return h.requestWithdrawal(c, h.mentors.UnresolvedSessionsCheck())
}
