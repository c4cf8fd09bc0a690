package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/payments"
)

func newPayoutFixture(t *testing.T, gateway *fakePayouts) (*withdrawalFixture, *PayoutService) {
	f := newWithdrawalFixture(t, "100")
	return f, NewPayoutService(f.svc, gateway, "https://edmerge.test")
}

func payoutRequest(f *withdrawalFixture, amount string) WithdrawalRequest {
	return WithdrawalRequest{
		EarnerID:       f.tutor.ID,
		Amount:         dec(amount),
		AccountDetails: models.AccountDetails{AccountNumber: "0690000031", BankCode: "044"},
	}
}

func TestPayoutWithdraw(t *testing.T) {
	gateway := &fakePayouts{}
	f, payouts := newPayoutFixture(t, gateway)

	w, err := payouts.Withdraw(context.Background(), payoutRequest(f, "40"))
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalChannelFlutterwave, w.Channel)
	assert.Equal(t, "ADA OBI", w.AccountDetails.AccountName)
	assert.Equal(t, EstimatedCompletionDate(fixedNow, FlutterwaveSettlementDays), w.EstimatedCompletionDate)
	require.Len(t, gateway.transfers, 1)
	assert.Equal(t, w.TransactionID, gateway.transfers[0].Reference)
	assert.Equal(t, "https://edmerge.test/api/flutterwave/webhook", gateway.transfers[0].CallbackURL)
}

func TestPayoutRejectedTransferFailsWithdrawal(t *testing.T) {
	gateway := &fakePayouts{transferErr: &payments.GatewayRejectedError{Operation: "transfer", Message: "insufficient payout balance"}}
	f, payouts := newPayoutFixture(t, gateway)

	_, err := payouts.Withdraw(context.Background(), payoutRequest(f, "40"))
	require.ErrorIs(t, err, ErrGateway)
	assert.True(t, IsGatewayRejection(err))

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.WithdrawalStatusFailed, rows[0].Status)

	b, err := LoadBalance(context.Background(), f.store, f.tutor.ID)
	require.NoError(t, err)
	requireDecimal(t, "100", b.Available)
}

func TestPayoutNetworkErrorLeavesWithdrawalPending(t *testing.T) {
	gateway := &fakePayouts{transferErr: errNetwork}
	f, payouts := newPayoutFixture(t, gateway)

	_, err := payouts.Withdraw(context.Background(), payoutRequest(f, "40"))
	require.ErrorIs(t, err, ErrGateway)
	assert.False(t, IsGatewayRejection(err))

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.WithdrawalStatusPending, rows[0].Status)
}

func TestPayoutInvalidAccountCreatesNothing(t *testing.T) {
	gateway := &fakePayouts{validateErr: &payments.GatewayRejectedError{Operation: "account resolve", Message: "invalid account"}}
	f, payouts := newPayoutFixture(t, gateway)

	_, err := payouts.Withdraw(context.Background(), payoutRequest(f, "40"))
	require.ErrorIs(t, err, ErrGateway)
	assert.Empty(t, f.rows(t))
	assert.Empty(t, gateway.transfers)
}
