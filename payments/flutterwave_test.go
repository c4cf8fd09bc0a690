package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *FlutterwaveGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFlutterwaveGateway(FlutterwaveConfig{
		SecretKey:   "FLWSECK_TEST-abc",
		WebhookHash: "s3cret",
		BaseURL:     srv.URL + "/",
		Timeout:     2 * time.Second,
	})
}

func TestInitiateTransferSendsReferenceAndBearer(t *testing.T) {
	var got map[string]interface{}
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers", r.URL.Path)
		assert.Equal(t, "Bearer FLWSECK_TEST-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","message":"Transfer Queued Successfully","data":{"id":42,"reference":"WD-1","status":"NEW","amount":150.5,"fee":0.5}}`))
	})

	transfer, err := gw.InitiateTransfer(context.Background(), TransferRequest{
		Amount:        decimal.RequireFromString("150.50"),
		AccountNumber: "0690000031",
		BankCode:      "044",
		Reference:     "WD-1",
		Narration:     "payout",
		CallbackURL:   "https://app.test/api/flutterwave/webhook",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), transfer.ID)
	assert.Equal(t, "NEW", transfer.Status)

	assert.Equal(t, "WD-1", got["reference"])
	assert.Equal(t, "044", got["account_bank"])
	assert.Equal(t, "USD", got["currency"])
	assert.Equal(t, 150.5, got["amount"])
}

func TestGatewayRejection(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Account number is invalid","data":null}`))
	})

	_, err := gw.ValidateAccount(context.Background(), "123", "044")
	var rejected *GatewayRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Account number is invalid", rejected.Message)
}

func TestGatewayTransportFailureIsNotRejection(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := gw.ValidateAccount(context.Background(), "0690000031", "044")
	require.Error(t, err)
	var rejected *GatewayRejectedError
	assert.False(t, errors.As(err, &rejected))
}

func TestCreatePaymentLink(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SUB-9", body["tx_ref"])
		assert.Equal(t, "9.99", body["amount"])
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/abc"}}`))
	})

	link, err := gw.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		TxRef:    "SUB-9",
		Amount:   decimal.RequireFromString("9.99"),
		Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/abc", link)
}

func TestVerifyWebhook(t *testing.T) {
	gw := NewFlutterwaveGateway(FlutterwaveConfig{WebhookHash: "s3cret"})
	assert.True(t, gw.VerifyWebhook("s3cret"))
	assert.False(t, gw.VerifyWebhook("nope"))
	assert.False(t, gw.VerifyWebhook(""))

	open := NewFlutterwaveGateway(FlutterwaveConfig{})
	assert.True(t, open.VerifyWebhook(""))
}
