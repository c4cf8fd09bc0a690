package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wisdomAdida/edmerge/payments"
)

type CardGateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*payments.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*payments.PaymentIntent, error)
}

type PayoutGateway interface {
	ValidateAccount(ctx context.Context, accountNumber, bankCode string) (*payments.ResolvedAccount, error)
	InitiateTransfer(ctx context.Context, req payments.TransferRequest) (*payments.Transfer, error)
}

type PaymentLinkGateway interface {
	CreatePaymentLink(ctx context.Context, req payments.PaymentLinkRequest) (string, error)
}

func gatewayError(err error) error {
	msg := "payment gateway unavailable"
	var rejected *payments.GatewayRejectedError
	if errors.As(err, &rejected) {
		msg = rejected.Message
	}
	return &Error{Code: CodeGateway, Message: msg, Err: err}
}

// IsGatewayRejection reports whether err is a gateway refusal as opposed to a
// transport failure.
func IsGatewayRejection(err error) bool {
	var rejected *payments.GatewayRejectedError
	return errors.As(err, &rejected)
}
