package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/middleware"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/payments"
	"github.com/wisdomAdida/edmerge/services"
)

type CheckoutInput struct {
	Kind   string `json:"kind" validate:"required,oneof=course_sale mentorship"`
	ItemID string `json:"item_id" validate:"required,uuid"`
}

type ResearchPurchaseInput struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type AccountInput struct {
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=20"`
	BankCode      string `json:"bank_code" validate:"required,max=20"`
}

type FlutterwaveWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		TxRef     string `json:"tx_ref"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// StartCheckout opens a card payment for a course or a mentorship.
func (h *Handler) StartCheckout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CheckoutInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	itemID, _ := uuid.Parse(req.ItemID)

	checkout, err := h.purchases.StartCheckout(c.UserContext(), userID, services.TransactionKind(req.Kind), itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment":       checkout.Payment,
		"client_secret": checkout.ClientSecret,
	})
}

// StartResearchCheckout opens a card payment bound to the caller and the
// research project.
func (h *Handler) StartResearchCheckout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := uuid.Parse(c.Params("projectId"))
	if err != nil {
		return badParam(c, "project ID")
	}
	checkout, err := h.purchases.StartResearchCheckout(c.UserContext(), userID, projectID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checkout)
}

// PurchaseResearch grants access to a research project once its Stripe
// payment has succeeded.
func (h *Handler) PurchaseResearch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := uuid.Parse(c.Params("projectId"))
	if err != nil {
		return badParam(c, "project ID")
	}
	var req ResearchPurchaseInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	purchase, err := h.purchases.PurchaseResearch(c.UserContext(), userID, projectID, req.PaymentIntentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchase)
}

func (h *Handler) StripeWebhook(c *fiber.Ctx) error {
	event, err := h.stripe.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		log.WithError(err).Warn("Rejected Stripe webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature", "code": services.CodeValidation})
	}

	var status string
	switch event.Type {
	case payments.StripeEventPaymentSucceeded:
		status = models.PaymentStatusCompleted
	case payments.StripeEventPaymentFailed:
		status = models.PaymentStatusFailed
	default:
		return c.JSON(fiber.Map{"received": true})
	}
	if event.PaymentIntent == nil {
		return c.JSON(fiber.Map{"received": true})
	}

	logger := log.WithFields(log.Fields{"event_id": event.ID, "payment_intent": event.PaymentIntent.ID})
	if _, err := h.purchases.SettlePayment(c.UserContext(), event.PaymentIntent.ID, status); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Info("Stripe webhook for unknown payment ignored")
		} else {
			logger.WithError(err).Error("Failed to settle payment from Stripe webhook")
		}
	}
	return c.JSON(fiber.Map{"received": true})
}

// FlutterwaveWebhook applies transfer outcomes to withdrawals and charge
// completions to subscriptions. Processing failures are logged and still
// acknowledged so the gateway stops retrying.
func (h *Handler) FlutterwaveWebhook(c *fiber.Ctx) error {
	if !h.flutterwave.VerifyWebhook(c.Get("verif-hash")) {
		log.Warn("Rejected Flutterwave webhook with bad verif-hash")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid webhook signature", "code": "UNAUTHORIZED"})
	}

	var payload FlutterwaveWebhook
	if err := c.BodyParser(&payload); err != nil {
		log.WithError(err).Warn("Unparseable Flutterwave webhook acknowledged")
		return c.JSON(fiber.Map{"received": true})
	}

	logger := log.WithFields(log.Fields{"event": payload.Event, "status": payload.Data.Status})
	switch {
	case strings.HasPrefix(payload.Event, "transfer."):
		reference := payload.Data.Reference
		w, err := h.withdrawals.ApplyTransferWebhook(c.UserContext(), reference, payload.Data.Status)
		if err != nil {
			logger.WithError(err).WithField("reference", reference).Error("Failed to apply transfer webhook")
			break
		}
		logger.WithFields(log.Fields{"withdrawal_id": w.ID, "withdrawal_status": w.Status}).Info("Transfer webhook applied")
	case payload.Event == "charge.completed":
		if !strings.EqualFold(payload.Data.Status, "successful") {
			logger.WithField("tx_ref", payload.Data.TxRef).Info("Unsuccessful charge ignored")
			break
		}
		if _, err := h.subscriptions.ActivateByTransaction(c.UserContext(), payload.Data.TxRef); err != nil {
			logger.WithError(err).WithField("tx_ref", payload.Data.TxRef).Error("Failed to activate subscription")
		}
	default:
		logger.Debug("Flutterwave webhook ignored")
	}
	return c.JSON(fiber.Map{"received": true})
}

func (h *Handler) ValidateAccount(c *fiber.Ctx) error {
	var req AccountInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	account, err := h.payouts.ValidateAccount(c.UserContext(), req.AccountNumber, req.BankCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(account)
}

// FlutterwaveWithdraw validates the bank account, records the withdrawal and
// starts the transfer.
func (h *Handler) FlutterwaveWithdraw(c *fiber.Ctx) error {
	userID, role, err := middleware.Identity(c)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	var req WithdrawalInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if req.AccountNumber == "" || req.BankCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account_number and bank_code are required",
			"code":  services.CodeValidation,
		})
	}

	var check services.ConflictCheck
	if role == models.RoleMentor {
		check = h.mentors.UnresolvedSessionsCheck()
	}

	withdrawal, err := h.payouts.Withdraw(c.UserContext(), services.WithdrawalRequest{
		EarnerID: userID,
		Amount:   req.Amount,
		AccountDetails: models.AccountDetails{
			AccountNumber: req.AccountNumber,
			BankCode:      req.BankCode,
		},
		ConflictCheck: check,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(withdrawal)
}
