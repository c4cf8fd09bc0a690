package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	StripeEventPaymentSucceeded = "payment_intent.succeeded"
	StripeEventPaymentFailed    = "payment_intent.payment_failed"

	PaymentIntentSucceeded = "succeeded"
)

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
	Currency     string
	Metadata     map[string]string
}

type StripeEvent struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

// CreatePaymentIntent charges amount (major units) in currency.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripeError("create payment intent", err)
	}
	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, wrapStripeError("get payment intent", err)
	}
	return fromStripeIntent(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*StripeEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &StripeEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.PaymentIntent = fromStripeIntent(&pi)
	}
	return out, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       decimal.New(pi.Amount, -2),
		Currency:     strings.ToUpper(string(pi.Currency)),
		Metadata:     pi.Metadata,
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Card declines and invalid requests come back as *stripe.Error; those are
// rejections, everything else is transport.
func wrapStripeError(operation string, err error) error {
	if se, ok := err.(*stripe.Error); ok && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 {
		return &GatewayRejectedError{Operation: operation, Message: se.Msg}
	}
	return fmt.Errorf("stripe %s: %w", operation, err)
}
