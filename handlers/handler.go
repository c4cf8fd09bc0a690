package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/middleware"
	"github.com/wisdomAdida/edmerge/payments"
	"github.com/wisdomAdida/edmerge/services"
	"github.com/wisdomAdida/edmerge/websocket"
)

var validate = validator.New()

// Deps are the collaborators the HTTP layer drives.
type Deps struct {
	Balances      *services.BalanceService
	Withdrawals   *services.WithdrawalService
	Payouts       *services.PayoutService
	Purchases     *services.PurchaseService
	Mentors       *services.MentorService
	Subscriptions *services.SubscriptionService
	Stripe        *payments.StripeGateway
	Flutterwave   *payments.FlutterwaveGateway
	Hub           *websocket.Hub
	JWTSecret     string
}

type Handler struct {
	balances      *services.BalanceService
	withdrawals   *services.WithdrawalService
	payouts       *services.PayoutService
	purchases     *services.PurchaseService
	mentors       *services.MentorService
	subscriptions *services.SubscriptionService
	stripe        *payments.StripeGateway
	flutterwave   *payments.FlutterwaveGateway
	hub           *websocket.Hub
	jwtSecret     string
}

func New(d Deps) *Handler {
	return &Handler{
		balances:      d.Balances,
		withdrawals:   d.Withdrawals,
		payouts:       d.Payouts,
		purchases:     d.Purchases,
		mentors:       d.Mentors,
		subscriptions: d.Subscriptions,
		stripe:        d.Stripe,
		flutterwave:   d.Flutterwave,
		hub:           d.Hub,
		jwtSecret:     d.JWTSecret,
	}
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, _, err := middleware.Identity(c)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	return id, nil
}

// ErrorHandler renders anything that escapes a handler as the JSON error
// envelope. Non-fiber errors are logged and hidden from the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": codeForStatus(fe.Code)})
	}
	log.WithError(err).WithFields(log.Fields{
		"path":   c.Path(),
		"method": c.Method(),
	}).Error("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
		"code":  services.CodeUnexpected,
	})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return services.CodeForbidden
	case fiber.StatusNotFound:
		return services.CodeNotFound
	case fiber.StatusBadRequest:
		return services.CodeValidation
	}
	if status >= fiber.StatusInternalServerError {
		return services.CodeUnexpected
	}
	return "HTTP_" + strconv.Itoa(status)
}

// parseBody decodes and validates the request body into req. On failure the
// 400 response has already been written and the returned error is the result
// of writing it.
func parseBody(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
			"code":  services.CodeValidation,
		})
	}
	if err := validate.Struct(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	details := map[string]string{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "Validation failed",
		"code":    services.CodeValidation,
		"details": details,
	})
}

func badParam(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid " + name,
		"code":  services.CodeValidation,
	})
}

func statusFor(err error) int {
	switch services.CodeOf(err) {
	case services.CodeValidation, services.CodeInsufficientFunds, services.CodeLimitViolation:
		return fiber.StatusBadRequest
	case services.CodeNotFound:
		return fiber.StatusNotFound
	case services.CodeForbidden:
		return fiber.StatusForbidden
	case services.CodeConflict:
		return fiber.StatusConflict
	case services.CodeGateway:
		if services.IsGatewayRejection(err) {
			return fiber.StatusBadRequest
		}
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// respondError writes the JSON error envelope for a service failure.
func respondError(c *fiber.Ctx, err error) error {
	code := services.CodeOf(err)
	status := statusFor(err)

	var domainErr *services.Error
	message := "Internal server error"
	if errors.As(err, &domainErr) && status != fiber.StatusInternalServerError {
		message = domainErr.Message
	}
	if status == fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"path":   c.Path(),
			"method": c.Method(),
			"code":   code,
		}).Error("request failed")
		if code == services.CodeGateway {
			message = "Payment gateway unavailable"
		}
	}
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}

// orEmpty keeps empty lists rendering as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
