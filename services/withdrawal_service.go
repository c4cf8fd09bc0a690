package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/storage"
)

type WithdrawalLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// ConflictCheck is a domain-specific veto run under the earner lock, after the
// balance and limit checks.
type ConflictCheck func(ctx context.Context, tx storage.Storage, earnerID uuid.UUID) error

type WithdrawalRequest struct {
	EarnerID       uuid.UUID
	Amount         decimal.Decimal
	Channel        string
	AccountDetails models.AccountDetails
	ConflictCheck  ConflictCheck
}

type WithdrawalService struct {
	store    storage.Storage
	limits   map[string]WithdrawalLimits
	ids      IDGenerator
	notifier Notifier
	now      func() time.Time
}

func NewWithdrawalService(store storage.Storage, limits map[string]WithdrawalLimits, ids IDGenerator, notifier Notifier) *WithdrawalService {
	return &WithdrawalService{
		store:    store,
		limits:   limits,
		ids:      ids,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (s *WithdrawalService) SetClock(now func() time.Time) { s.now = now }

// RequestWithdrawal validates the amount against the earner's balance and
// role limits and records a pending withdrawal. The balance read and the
// insert happen under the earner lock, so concurrent requests cannot jointly
// overdraw.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.Withdrawal, error) {
	if !req.Amount.IsPositive() {
		return nil, newError(CodeValidation, "amount must be greater than zero")
	}
	if req.Amount.Exponent() < -2 && !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, newError(CodeValidation, "amount has more than two decimal places")
	}

	earner, err := s.store.GetUser(ctx, req.EarnerID)
	if err != nil {
		return nil, notFound(err, "earner")
	}
	limits, ok := s.limits[earner.Role]
	if !ok {
		return nil, newError(CodeForbidden, "role "+earner.Role+" cannot withdraw")
	}

	channel := req.Channel
	if channel == "" {
		channel = models.WithdrawalChannelManual
	}
	settlementDays := ManualSettlementDays
	if channel == models.WithdrawalChannelFlutterwave {
		settlementDays = FlutterwaveSettlementDays
	}

	var created models.Withdrawal
	err = s.store.WithEarnerLock(ctx, earner.ID, func(tx storage.Storage) error {
		balance, err := LoadBalance(ctx, tx, earner.ID)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(balance.Available) {
			return &Error{
				Code:    CodeInsufficientFunds,
				Message: fmt.Sprintf("requested %s exceeds available balance %s", req.Amount.StringFixed(2), balance.Available.StringFixed(2)),
			}
		}
		if req.Amount.LessThan(limits.Min) || req.Amount.GreaterThan(limits.Max) {
			return &Error{
				Code:    CodeLimitViolation,
				Message: fmt.Sprintf("amount must be between %s and %s", limits.Min.StringFixed(2), limits.Max.StringFixed(2)),
			}
		}
		if req.ConflictCheck != nil {
			if err := req.ConflictCheck(ctx, tx, earner.ID); err != nil {
				return err
			}
		}

		txID, err := s.ids.Next("WD")
		if err != nil {
			return fmt.Errorf("generate withdrawal reference: %w", err)
		}
		now := s.now()
		created = models.Withdrawal{
			TutorID:                 earner.ID,
			EarnerRole:              earner.Role,
			Amount:                  req.Amount,
			Status:                  models.WithdrawalStatusPending,
			Channel:                 channel,
			TransactionID:           txID,
			RequestDate:             now,
			EstimatedCompletionDate: EstimatedCompletionDate(now, settlementDays),
			AccountDetails:          req.AccountDetails,
		}
		return tx.CreateWithdrawal(ctx, &created)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawal_id":  created.ID,
		"transaction_id": created.TransactionID,
		"earner_id":      created.TutorID,
		"amount":         created.Amount.StringFixed(2),
		"channel":        created.Channel,
	}).Info("Withdrawal requested")

	recipients := append([]uuid.UUID{earner.ID}, adminIDs(ctx, s.store)...)
	notify(ctx, s.notifier, notifications.Event{
		Type:        notifications.EventWithdrawalRequested,
		Recipients:  recipients,
		Payload:     created,
		AlertAdmins: true,
		Subject:     fmt.Sprintf("New withdrawal request %s for %s", created.TransactionID, created.Amount.StringFixed(2)),
	})

	return &created, nil
}

func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, notFound(err, "withdrawal")
	}
	return w, nil
}

func (s *WithdrawalService) ListWithdrawals(ctx context.Context, earnerID uuid.UUID) ([]models.Withdrawal, error) {
	return s.store.ListWithdrawalsByEarner(ctx, earnerID)
}

func (s *WithdrawalService) ListByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	return s.store.ListWithdrawalsByStatus(ctx, status)
}

// CompleteWithdrawal settles a pending withdrawal.
func (s *WithdrawalService) CompleteWithdrawal(ctx context.Context, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	return s.finish(ctx, id, models.WithdrawalStatusCompleted, notes, "")
}

// FailWithdrawal releases a pending withdrawal. The row stays in history; the balance
// frees up because pending holds are summed by status.
func (s *WithdrawalService) FailWithdrawal(ctx context.Context, id uuid.UUID, reason string) (*models.Withdrawal, error) {
	return s.finish(ctx, id, models.WithdrawalStatusFailed, "", reason)
}

func (s *WithdrawalService) finish(ctx context.Context, id uuid.UUID, status, notes, reason string) (*models.Withdrawal, error) {
	current, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, notFound(err, "withdrawal")
	}

	var updated models.Withdrawal
	err = s.store.WithEarnerLock(ctx, current.TutorID, func(tx storage.Storage) error {
		w, err := tx.GetWithdrawal(ctx, id)
		if err != nil {
			return notFound(err, "withdrawal")
		}
		if w.Status != models.WithdrawalStatusPending {
			return newError(CodeConflict, "withdrawal is already "+w.Status)
		}
		now := s.now()
		w.Status = status
		w.ProcessedAt = &now
		if notes != "" {
			w.AdminNotes = &notes
		}
		if reason != "" {
			w.FailureReason = &reason
		}
		if err := tx.UpdateWithdrawal(ctx, w); err != nil {
			return err
		}
		updated = *w
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := notifications.EventWithdrawalCompleted
	if status == models.WithdrawalStatusFailed {
		eventType = notifications.EventWithdrawalFailed
	}
	log.WithFields(log.Fields{
		"withdrawal_id":  updated.ID,
		"transaction_id": updated.TransactionID,
		"status":         updated.Status,
	}).Info("Withdrawal settled")
	notify(ctx, s.notifier, notifications.Event{
		Type:       eventType,
		Recipients: []uuid.UUID{updated.TutorID},
		Payload:    updated,
	})
	return &updated, nil
}

// ApplyTransferWebhook maps a gateway transfer status onto the withdrawal
// whose transaction id matches reference. Statuses other than success or
// failure are ignored, and a withdrawal already settled is left untouched.
func (s *WithdrawalService) ApplyTransferWebhook(ctx context.Context, reference, gatewayStatus string) (*models.Withdrawal, error) {
	w, err := s.store.GetWithdrawalByTransactionID(ctx, reference)
	if err != nil {
		return nil, notFound(err, "withdrawal")
	}
	if w.Status != models.WithdrawalStatusPending {
		return w, nil
	}

	switch strings.ToLower(gatewayStatus) {
	case "successful", "success", "completed":
		return s.CompleteWithdrawal(ctx, w.ID, "")
	case "failed", "failure", "reversed":
		return s.FailWithdrawal(ctx, w.ID, "gateway reported "+strings.ToLower(gatewayStatus))
	}
	return w, nil
}

// ExpireStaleWithdrawals fails withdrawals still pending after olderThan. Returns how
// many were failed.
func (s *WithdrawalService) ExpireStaleWithdrawals(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.store.ListStalePendingWithdrawals(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, w := range stale {
		if _, err := s.FailWithdrawal(ctx, w.ID, "no settlement received"); err != nil {
			if CodeOf(err) == CodeConflict {
				continue
			}
			log.WithError(err).WithField("withdrawal_id", w.ID).Error("Failed to expire withdrawal")
			continue
		}
		expired++
	}
	return expired, nil
}
