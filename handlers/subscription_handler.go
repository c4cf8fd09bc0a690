package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SubscriptionCheckoutInput struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

type GenerateKeysInput struct {
	PlanID       string `json:"plan_id" validate:"required,uuid"`
	Count        int    `json:"count" validate:"required,min=1,max=500"`
	ValidForDays int    `json:"valid_for_days" validate:"required,min=1,max=3650"`
}

func (h *Handler) SubscriptionCheckout(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req SubscriptionCheckoutInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	planID, _ := uuid.Parse(req.PlanID)

	checkout, err := h.subscriptions.Checkout(c.UserContext(), userID, planID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checkout)
}

func (h *Handler) GenerateSubscriptionKeys(c *fiber.Ctx) error {
	var req GenerateKeysInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	planID, _ := uuid.Parse(req.PlanID)

	keys, err := h.subscriptions.GenerateKeys(c.UserContext(), planID, req.Count, time.Duration(req.ValidForDays)*24*time.Hour)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(keys)
}

func (h *Handler) RevokeSubscriptionKey(c *fiber.Ctx) error {
	keyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "key ID")
	}
	key, err := h.subscriptions.RevokeKey(c.UserContext(), keyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(key)
}
