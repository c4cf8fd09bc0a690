package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/payments"

	log "github.com/sirupsen/logrus"
)

// PayoutService runs withdrawals that are paid out through Flutterwave.
type PayoutService struct {
	withdrawals *WithdrawalService
	gateway     PayoutGateway
	callbackURL string
}

func NewPayoutService(withdrawals *WithdrawalService, gateway PayoutGateway, appURL string) *PayoutService {
	return &PayoutService{
		withdrawals: withdrawals,
		gateway:     gateway,
		callbackURL: strings.TrimRight(appURL, "/") + "/api/flutterwave/webhook",
	}
}

func (s *PayoutService) ValidateAccount(ctx context.Context, accountNumber, bankCode string) (*payments.ResolvedAccount, error) {
	account, err := s.gateway.ValidateAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, gatewayError(err)
	}
	return account, nil
}

// Withdraw validates the destination account, records the withdrawal and
// starts the transfer. A rejected transfer fails the withdrawal; a transport
// error leaves it pending for the webhook or the expiry job.
func (s *PayoutService) Withdraw(ctx context.Context, req WithdrawalRequest) (*models.Withdrawal, error) {
	account, err := s.ValidateAccount(ctx, req.AccountDetails.AccountNumber, req.AccountDetails.BankCode)
	if err != nil {
		return nil, err
	}
	req.AccountDetails.AccountName = account.AccountName
	req.Channel = models.WithdrawalChannelFlutterwave

	w, err := s.withdrawals.RequestWithdrawal(ctx, req)
	if err != nil {
		return nil, err
	}

	_, err = s.gateway.InitiateTransfer(ctx, payments.TransferRequest{
		Amount:        w.Amount,
		AccountNumber: w.AccountDetails.AccountNumber,
		BankCode:      w.AccountDetails.BankCode,
		Reference:     w.TransactionID,
		Narration:     fmt.Sprintf("EdMerge withdrawal %s", w.TransactionID),
		CallbackURL:   s.callbackURL,
	})
	if err == nil {
		return w, nil
	}

	if IsGatewayRejection(err) {
		if _, failErr := s.withdrawals.FailWithdrawal(ctx, w.ID, err.Error()); failErr != nil {
			log.WithError(failErr).WithField("withdrawal_id", w.ID).Error("Could not fail rejected withdrawal")
		}
	} else {
		log.WithError(err).WithField("withdrawal_id", w.ID).Warn("Transfer outcome unknown, withdrawal left pending")
	}
	return nil, gatewayError(err)
}
