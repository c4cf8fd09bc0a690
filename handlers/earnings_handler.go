package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/services"
)

type WithdrawalInput struct {
	Amount        decimal.Decimal `json:"amount"`
	AccountNumber string          `json:"account_number" validate:"omitempty,max=34"`
	BankCode      string          `json:"bank_code" validate:"omitempty,max=20"`
	AccountName   string          `json:"account_name" validate:"omitempty,max=120"`
}

// GetEarnings returns the caller's balance breakdown with their latest sales.
// Serves both the tutor and researcher earnings routes.
func (h *Handler) GetEarnings(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	report, err := h.balances.Report(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// RequestWithdrawal records a manual-channel withdrawal for the caller.
func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	return h.requestWithdrawal(c, nil)
}

func (h *Handler) requestWithdrawal(c *fiber.Ctx, check services.ConflictCheck) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req WithdrawalInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	withdrawal, err := h.withdrawals.RequestWithdrawal(c.UserContext(), services.WithdrawalRequest{
		EarnerID: userID,
		Amount:   req.Amount,
		Channel:  models.WithdrawalChannelManual,
		AccountDetails: models.AccountDetails{
			AccountNumber: req.AccountNumber,
			BankCode:      req.BankCode,
			AccountName:   req.AccountName,
		},
		ConflictCheck: check,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(withdrawal)
}

func (h *Handler) ListWithdrawals(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	withdrawals, err := h.withdrawals.ListWithdrawals(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orEmpty(withdrawals))
}
