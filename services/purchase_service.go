package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/payments"
	"github.com/wisdomAdida/edmerge/storage"
)

type Checkout struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

type ResearchCheckout struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type PurchaseService struct {
	store    storage.Storage
	cards    CardGateway
	notifier Notifier
	now      func() time.Time
}

func NewPurchaseService(store storage.Storage, cards CardGateway, notifier Notifier) *PurchaseService {
	return &PurchaseService{store: store, cards: cards, notifier: notifier, now: time.Now}
}

func (s *PurchaseService) SetClock(now func() time.Time) { s.now = now }

// StartCheckout opens a Stripe PaymentIntent for a course or a mentorship and
// records the pending payment with its commission split fixed up front.
func (s *PurchaseService) StartCheckout(ctx context.Context, buyerID uuid.UUID, kind TransactionKind, itemID uuid.UUID) (*Checkout, error) {
	payment := models.Payment{
		UserID:   buyerID,
		Kind:     string(kind),
		Provider: "stripe",
		Status:   models.PaymentStatusPending,
		Currency: "USD",
	}

	switch kind {
	case KindCourseSale:
		course, err := s.store.GetCourse(ctx, itemID)
		if err != nil {
			return nil, notFound(err, "course")
		}
		payment.CourseID = &course.ID
		payment.EarnerID = course.TutorID
		payment.Amount = course.Price
		if course.Currency != "" {
			payment.Currency = course.Currency
		}
	case KindMentorship:
		m, err := s.store.GetMentorship(ctx, itemID)
		if err != nil {
			return nil, notFound(err, "mentorship")
		}
		if m.MenteeID != buyerID {
			return nil, newError(CodeForbidden, "only the mentee can pay for this mentorship")
		}
		if m.Status == models.MentorshipStatusCanceled || m.Status == models.MentorshipStatusCompleted {
			return nil, newError(CodeConflict, "mentorship is "+m.Status)
		}
		payment.MentorshipID = &m.ID
		payment.EarnerID = m.MentorID
		payment.Amount = m.SessionPrice
	default:
		return nil, newError(CodeValidation, "unsupported checkout kind "+string(kind))
	}

	if payment.EarnerID == buyerID {
		return nil, newError(CodeValidation, "cannot purchase your own listing")
	}
	if !payment.Amount.IsPositive() {
		return nil, newError(CodeValidation, "item has no price")
	}

	split, err := SplitCommission(payment.Amount, kind)
	if err != nil {
		return nil, err
	}
	payment.AdminCommission = split.PlatformShare
	payment.TutorAmount = split.EarnerShare

	intent, err := s.cards.CreatePaymentIntent(ctx, payment.Amount, payment.Currency, map[string]string{
		"kind":     string(kind),
		"item_id":  itemID.String(),
		"buyer_id": buyerID.String(),
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	payment.TransactionID = intent.ID
	payment.PaymentDate = s.now()
	if err := s.store.CreatePayment(ctx, &payment); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
		"kind":           payment.Kind,
		"amount":         payment.Amount.StringFixed(2),
	}).Info("Checkout started")
	return &Checkout{Payment: &payment, ClientSecret: intent.ClientSecret}, nil
}

// StartResearchCheckout opens a Stripe PaymentIntent for a research project.
// The intent is tagged with the project and buyer so it can only be redeemed
// for that purchase.
func (s *PurchaseService) StartResearchCheckout(ctx context.Context, buyerID, projectID uuid.UUID) (*ResearchCheckout, error) {
	project, err := s.store.GetResearchProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "research project")
	}
	if project.ResearcherID == buyerID {
		return nil, newError(CodeValidation, "cannot purchase your own research")
	}
	if !project.Price.IsPositive() {
		return nil, newError(CodeValidation, "item has no price")
	}

	intent, err := s.cards.CreatePaymentIntent(ctx, project.Price, "USD", map[string]string{
		"kind":     string(KindResearchPurchase),
		"item_id":  project.ID.String(),
		"buyer_id": buyerID.String(),
	})
	if err != nil {
		return nil, gatewayError(err)
	}
	log.WithFields(log.Fields{
		"project_id":     project.ID,
		"transaction_id": intent.ID,
	}).Info("Research checkout started")
	return &ResearchCheckout{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          project.Price,
		Currency:        "USD",
	}, nil
}

// SettlePayment moves a pending payment to completed or failed. Repeating the
// same outcome is a no-op; a different outcome on a settled payment is a
// conflict.
func (s *PurchaseService) SettlePayment(ctx context.Context, transactionID, status string) (*models.Payment, error) {
	if status != models.PaymentStatusCompleted && status != models.PaymentStatusFailed {
		return nil, newError(CodeValidation, "invalid payment status "+status)
	}
	p, err := s.store.GetPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, notFound(err, "payment")
	}

	changed := false
	err = s.store.WithEarnerLock(ctx, p.EarnerID, func(tx storage.Storage) error {
		current, err := tx.GetPaymentByTransactionID(ctx, transactionID)
		if err != nil {
			return notFound(err, "payment")
		}
		if current.Status == status {
			*p = *current
			return nil
		}
		if current.Status != models.PaymentStatusPending {
			return newError(CodeConflict, "payment is already "+current.Status)
		}
		if err := tx.UpdatePaymentStatus(ctx, current.ID, status); err != nil {
			return err
		}
		current.Status = status
		*p = *current
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return p, nil
	}

	log.WithFields(log.Fields{
		"transaction_id": transactionID,
		"status":         status,
	}).Info("Payment settled")

	eventType := notifications.EventPaymentCompleted
	recipients := []uuid.UUID{p.UserID}
	if status == models.PaymentStatusCompleted {
		recipients = append(recipients, p.EarnerID)
	} else {
		eventType = notifications.EventPaymentFailed
	}
	notify(ctx, s.notifier, notifications.Event{Type: eventType, Recipients: recipients, Payload: p})
	return p, nil
}

type ResearchPurchaseRequest struct {
	BuyerID       uuid.UUID
	ProjectID     uuid.UUID
	TransactionID string
	Amount        decimal.Decimal
}

// RecordResearchPurchase writes a completed research purchase. Replaying a
// transaction id by the same buyer for the same project returns the existing
// purchase. A transaction id already spent on anything else is refused.
func (s *PurchaseService) RecordResearchPurchase(ctx context.Context, req ResearchPurchaseRequest) (*models.ResearchPurchase, error) {
	if req.TransactionID == "" {
		return nil, newError(CodeValidation, "transaction id is required")
	}
	if existing, err := s.store.GetResearchPurchaseByTransactionID(ctx, req.TransactionID); err == nil {
		return sameResearchPurchase(existing, req)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetPaymentByTransactionID(ctx, req.TransactionID); err == nil {
		return nil, newError(CodeConflict, "transaction already pays for another purchase")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	project, err := s.store.GetResearchProject(ctx, req.ProjectID)
	if err != nil {
		return nil, notFound(err, "research project")
	}
	if project.ResearcherID == req.BuyerID {
		return nil, newError(CodeValidation, "cannot purchase your own research")
	}
	amount := req.Amount
	if amount.IsZero() {
		amount = project.Price
	}
	split, err := SplitCommission(amount, KindResearchPurchase)
	if err != nil {
		return nil, err
	}

	now := s.now()
	purchase := models.ResearchPurchase{
		UserID:           req.BuyerID,
		ProjectID:        project.ID,
		ResearcherID:     project.ResearcherID,
		Amount:           amount,
		TransactionID:    req.TransactionID,
		Status:           models.PaymentStatusCompleted,
		AdminCommission:  split.PlatformShare,
		ResearcherAmount: split.EarnerShare,
		PurchaseDate:     now,
		AccessExpiresAt:  now.Add(models.ResearchAccessPeriod),
	}
	err = s.store.WithEarnerLock(ctx, project.ResearcherID, func(tx storage.Storage) error {
		return tx.CreateResearchPurchase(ctx, &purchase)
	})
	if errors.Is(err, storage.ErrDuplicate) {
		existing, getErr := s.store.GetResearchPurchaseByTransactionID(ctx, req.TransactionID)
		if getErr != nil {
			return nil, getErr
		}
		return sameResearchPurchase(existing, req)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"purchase_id":    purchase.ID,
		"project_id":     purchase.ProjectID,
		"transaction_id": purchase.TransactionID,
	}).Info("Research purchase recorded")
	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventResearchPurchased,
		Recipients: []uuid.UUID{purchase.ResearcherID, purchase.UserID},
		Payload:    purchase,
	})
	return &purchase, nil
}

func sameResearchPurchase(existing *models.ResearchPurchase, req ResearchPurchaseRequest) (*models.ResearchPurchase, error) {
	if existing.UserID != req.BuyerID {
		return nil, newError(CodeForbidden, "transaction belongs to another buyer")
	}
	if existing.ProjectID != req.ProjectID {
		return nil, newError(CodeConflict, "transaction already pays for another project")
	}
	return existing, nil
}

// PurchaseResearch confirms a Stripe payment opened by StartResearchCheckout
// for this buyer and project at the project's full price, then records the
// purchase.
func (s *PurchaseService) PurchaseResearch(ctx context.Context, buyerID, projectID uuid.UUID, paymentIntentID string) (*models.ResearchPurchase, error) {
	project, err := s.store.GetResearchProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "research project")
	}
	intent, err := s.cards.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, gatewayError(err)
	}
	if intent.Status != payments.PaymentIntentSucceeded {
		return nil, newError(CodeValidation, "payment has not succeeded")
	}
	if intent.Metadata["kind"] != string(KindResearchPurchase) || intent.Metadata["item_id"] != projectID.String() {
		return nil, newError(CodeValidation, "payment is not for this research project")
	}
	if intent.Metadata["buyer_id"] != buyerID.String() {
		return nil, newError(CodeForbidden, "payment was made by another buyer")
	}
	if !intent.Amount.Equal(project.Price) {
		return nil, newError(CodeValidation, fmt.Sprintf("paid %s but project costs %s", intent.Amount.StringFixed(2), project.Price.StringFixed(2)))
	}
	return s.RecordResearchPurchase(ctx, ResearchPurchaseRequest{
		BuyerID:       buyerID,
		ProjectID:     projectID,
		TransactionID: intent.ID,
		Amount:        intent.Amount,
	})
}
