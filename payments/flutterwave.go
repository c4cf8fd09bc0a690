package payments

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DefaultFlutterwaveBaseURL = "https://api.flutterwave.com/v3"

// GatewayRejectedError means the gateway answered but refused the operation.
// Anything else returned by the gateways is a transport or decoding failure.
type GatewayRejectedError struct {
	Operation string
	Message   string
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Operation, e.Message)
}

type FlutterwaveConfig struct {
	SecretKey   string
	WebhookHash string
	BaseURL     string
	Timeout     time.Duration
}

type FlutterwaveGateway struct {
	secretKey   string
	webhookHash string
	baseURL     string
	client      *http.Client
}

func NewFlutterwaveGateway(cfg FlutterwaveConfig) *FlutterwaveGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultFlutterwaveBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FlutterwaveGateway{
		secretKey:   cfg.SecretKey,
		webhookHash: cfg.WebhookHash,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
	}
}

type flutterwaveEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type TransferRequest struct {
	Amount        decimal.Decimal
	Currency      string
	AccountNumber string
	BankCode      string
	Reference     string
	Narration     string
	CallbackURL   string
}

type Transfer struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
}

type PaymentLinkRequest struct {
	TxRef         string
	Amount        decimal.Decimal
	Currency      string
	RedirectURL   string
	CustomerEmail string
	CustomerName  string
	Title         string
}

// ValidateAccount resolves the holder name of a bank account.
func (g *FlutterwaveGateway) ValidateAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	payload := map[string]string{
		"account_number": accountNumber,
		"account_bank":   bankCode,
	}
	var account ResolvedAccount
	if err := g.post(ctx, "account resolve", "/accounts/resolve", payload, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// InitiateTransfer queues a payout. Reference must be the withdrawal's
// transaction id so Flutterwave rejects a repeated transfer.
func (g *FlutterwaveGateway) InitiateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	payload := map[string]interface{}{
		"account_bank":   req.BankCode,
		"account_number": req.AccountNumber,
		"amount":         req.Amount.InexactFloat64(),
		"currency":       currency,
		"debit_currency": currency,
		"narration":      req.Narration,
		"reference":      req.Reference,
		"callback_url":   req.CallbackURL,
	}
	var transfer Transfer
	if err := g.post(ctx, "transfer", "/transfers", payload, &transfer); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"reference":   req.Reference,
		"transfer_id": transfer.ID,
		"status":      transfer.Status,
	}).Info("Flutterwave transfer initiated")
	return &transfer, nil
}

// CreatePaymentLink returns a hosted checkout URL for tx_ref.
func (g *FlutterwaveGateway) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (string, error) {
	payload := map[string]interface{}{
		"tx_ref":       req.TxRef,
		"amount":       req.Amount.StringFixed(2),
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer": map[string]string{
			"email": req.CustomerEmail,
			"name":  req.CustomerName,
		},
		"customizations": map[string]string{
			"title": req.Title,
		},
	}
	var link struct {
		Link string `json:"link"`
	}
	if err := g.post(ctx, "payment link", "/payments", payload, &link); err != nil {
		return "", err
	}
	return link.Link, nil
}

// VerifyWebhook checks the verif-hash header. With no hash configured every
// webhook is accepted.
func (g *FlutterwaveGateway) VerifyWebhook(headerHash string) bool {
	if g.webhookHash == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(headerHash), []byte(g.webhookHash)) == 1
}

func (g *FlutterwaveGateway) post(ctx context.Context, operation, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	var envelope flutterwaveEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response (HTTP %d): %w", operation, resp.StatusCode, err)
	}
	if envelope.Status != "success" {
		log.WithFields(log.Fields{
			"operation": operation,
			"http":      resp.StatusCode,
			"message":   envelope.Message,
		}).Warn("Flutterwave rejected request")
		return &GatewayRejectedError{Operation: operation, Message: envelope.Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s data: %w", operation, err)
		}
	}
	return nil
}
