package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/models"
)

type ProcessWithdrawalInput struct {
	Status     string `json:"status" validate:"required,oneof=completed failed"`
	AdminNotes string `json:"admin_notes" validate:"max=1000"`
}

// ListWithdrawalsForAdmin lists withdrawals by status, pending by default.
func (h *Handler) ListWithdrawalsForAdmin(c *fiber.Ctx) error {
	status := c.Query("status", models.WithdrawalStatusPending)
	switch status {
	case models.WithdrawalStatusPending, models.WithdrawalStatusCompleted, models.WithdrawalStatusFailed:
	default:
		return badParam(c, "status")
	}
	withdrawals, err := h.withdrawals.ListByStatus(c.UserContext(), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orEmpty(withdrawals))
}

// ProcessWithdrawal settles a pending manual withdrawal after the payout has
// been made (or abandoned) outside the platform.
func (h *Handler) ProcessWithdrawal(c *fiber.Ctx) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	withdrawalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "withdrawal ID")
	}
	var req ProcessWithdrawalInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	var withdrawal *models.Withdrawal
	if req.Status == models.WithdrawalStatusCompleted {
		withdrawal, err = h.withdrawals.CompleteWithdrawal(c.UserContext(), withdrawalID, req.AdminNotes)
	} else {
		withdrawal, err = h.withdrawals.FailWithdrawal(c.UserContext(), withdrawalID, req.AdminNotes)
	}
	if err != nil {
		return respondError(c, err)
	}

	log.WithFields(log.Fields{
		"admin_id":      adminID,
		"withdrawal_id": withdrawal.ID,
		"status":        withdrawal.Status,
	}).Info("Withdrawal processed by admin")
	return c.JSON(withdrawal)
}

