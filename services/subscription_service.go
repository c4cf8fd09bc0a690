package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/payments"
	"github.com/wisdomAdida/edmerge/storage"
	"github.com/wisdomAdida/edmerge/utils"
)

const maxKeysPerBatch = 500

type SubscriptionCheckout struct {
	Subscription *models.Subscription `json:"subscription"`
	PaymentLink  string               `json:"payment_link"`
}

type SubscriptionService struct {
	store       storage.Storage
	links       PaymentLinkGateway
	ids         IDGenerator
	notifier    Notifier
	redirectURL string
	now         func() time.Time
}

func NewSubscriptionService(store storage.Storage, links PaymentLinkGateway, ids IDGenerator, notifier Notifier, appURL string) *SubscriptionService {
	return &SubscriptionService{
		store:       store,
		links:       links,
		ids:         ids,
		notifier:    notifier,
		redirectURL: strings.TrimRight(appURL, "/") + "/subscriptions/complete",
		now:         time.Now,
	}
}

func (s *SubscriptionService) SetClock(now func() time.Time) { s.now = now }

// Checkout creates a pending subscription and a Flutterwave payment link
// whose tx_ref is the subscription's transaction id. The subscription is
// canceled if no link could be created.
func (s *SubscriptionService) Checkout(ctx context.Context, userID, planID uuid.UUID) (*SubscriptionCheckout, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	plan, err := s.store.GetSubscriptionPlan(ctx, planID)
	if err != nil {
		return nil, notFound(err, "plan")
	}
	if !plan.IsActive {
		return nil, newError(CodeValidation, "plan is not available")
	}

	txRef, err := s.ids.Next("SUB")
	if err != nil {
		return nil, err
	}
	sub := models.Subscription{
		UserID:        user.ID,
		PlanID:        plan.ID,
		Status:        models.SubscriptionStatusPending,
		TransactionID: txRef,
	}
	if err := s.store.CreateSubscription(ctx, &sub); err != nil {
		return nil, err
	}

	link, err := s.links.CreatePaymentLink(ctx, payments.PaymentLinkRequest{
		TxRef:         txRef,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		RedirectURL:   s.redirectURL,
		CustomerEmail: user.Email,
		CustomerName:  user.FullName,
		Title:         plan.Name,
	})
	if err != nil {
		sub.Status = models.SubscriptionStatusCanceled
		if cancelErr := s.store.UpdateSubscription(ctx, &sub); cancelErr != nil {
			log.WithError(cancelErr).WithField("transaction_id", txRef).Error("Failed to cancel subscription after payment link error")
		}
		return nil, gatewayError(err)
	}
	return &SubscriptionCheckout{Subscription: &sub, PaymentLink: link}, nil
}

// ActivateByTransaction starts the subscription paid under txRef.
func (s *SubscriptionService) ActivateByTransaction(ctx context.Context, txRef string) (*models.Subscription, error) {
	sub, err := s.store.GetSubscriptionByTransactionID(ctx, txRef)
	if err != nil {
		return nil, notFound(err, "subscription")
	}
	if sub.Status == models.SubscriptionStatusActive {
		return sub, nil
	}
	if sub.Status != models.SubscriptionStatusPending {
		return nil, newError(CodeConflict, "subscription is "+sub.Status)
	}
	plan, err := s.store.GetSubscriptionPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, notFound(err, "plan")
	}

	start := s.now()
	end := start.AddDate(0, 0, plan.DurationDays)
	sub.Status = models.SubscriptionStatusActive
	sub.StartDate = &start
	sub.EndDate = &end
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"subscription_id": sub.ID,
		"transaction_id":  txRef,
		"ends_at":         end,
	}).Info("Subscription activated")
	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSubscriptionActivated,
		Recipients: []uuid.UUID{sub.UserID},
		Payload:    sub,
	})
	return sub, nil
}

// ExpireSubscriptions marks active subscriptions past their end date expired.
func (s *SubscriptionService) ExpireSubscriptions(ctx context.Context) (int, error) {
	due, err := s.store.ListExpiredSubscriptions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for i := range due {
		due[i].Status = models.SubscriptionStatusExpired
		if err := s.store.UpdateSubscription(ctx, &due[i]); err != nil {
			return i, err
		}
	}
	return len(due), nil
}

// GenerateKeys issues count active keys for plan, each valid for validFor.
func (s *SubscriptionService) GenerateKeys(ctx context.Context, planID uuid.UUID, count int, validFor time.Duration) ([]models.SubscriptionKey, error) {
	if count < 1 || count > maxKeysPerBatch {
		return nil, newError(CodeValidation, "count must be between 1 and 500")
	}
	if validFor <= 0 {
		return nil, newError(CodeValidation, "validity must be positive")
	}
	if _, err := s.store.GetSubscriptionPlan(ctx, planID); err != nil {
		return nil, notFound(err, "plan")
	}

	exists := func(code string) (bool, error) {
		return s.store.SubscriptionKeyCodeExists(ctx, code)
	}
	expiresAt := s.now().Add(validFor)
	keys := make([]models.SubscriptionKey, 0, count)
	for len(keys) < count {
		code, err := utils.GenerateUniqueCode(utils.KeyCodeLength, exists)
		if err != nil {
			return keys, err
		}
		key := models.SubscriptionKey{
			Code:      code,
			PlanID:    planID,
			Status:    models.KeyStatusActive,
			ExpiresAt: expiresAt,
		}
		if err := s.store.CreateSubscriptionKey(ctx, &key); err != nil {
			// lost a race for the code; draw again
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return keys, err
		}
		keys = append(keys, key)
	}
	log.WithFields(log.Fields{"plan_id": planID, "count": count}).Info("Subscription keys generated")
	return keys, nil
}

// RevokeKey revokes an active key. A key in any other state, or one past its
// expiry that the sweep has not reached yet, is left as is.
func (s *SubscriptionService) RevokeKey(ctx context.Context, keyID uuid.UUID) (*models.SubscriptionKey, error) {
	key, err := s.store.GetSubscriptionKey(ctx, keyID)
	if err != nil {
		return nil, notFound(err, "subscription key")
	}
	if key.Status == models.KeyStatusActive && key.ExpiresAt.Before(s.now()) {
		return nil, newError(CodeConflict, "key is "+models.KeyStatusExpired)
	}
	if key.Status != models.KeyStatusActive {
		return nil, newError(CodeConflict, "key is "+key.Status)
	}

	err = s.store.TransitionSubscriptionKey(ctx, key.ID, models.KeyStatusActive, models.KeyStatusRevoked)
	if errors.Is(err, storage.ErrStaleStatus) {
		current, getErr := s.store.GetSubscriptionKey(ctx, key.ID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, newError(CodeConflict, "key is "+current.Status)
	}
	if err != nil {
		return nil, err
	}
	key.Status = models.KeyStatusRevoked
	log.WithField("key_id", key.ID).Info("Subscription key revoked")
	return key, nil
}

// ExpireKeys marks active keys past their expiry expired. Keys that left
// active in the meantime are skipped and not counted.
func (s *SubscriptionService) ExpireKeys(ctx context.Context) (int, error) {
	due, err := s.store.ListExpiredActiveKeys(ctx, s.now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, k := range due {
		err := s.store.TransitionSubscriptionKey(ctx, k.ID, models.KeyStatusActive, models.KeyStatusExpired)
		if errors.Is(err, storage.ErrStaleStatus) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
