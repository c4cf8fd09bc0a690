package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/payments"
	"github.com/wisdomAdida/edmerge/storage/memstore"
)

// Wednesday, so five business days later lands on the next Wednesday.
var fixedNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "want %s, got %s", want, got.String())
}

type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) Next(prefix string) (string, error) {
	return fmt.Sprintf("%s-%d", prefix, g.n.Add(1)), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (n *recordingNotifier) Dispatch(_ context.Context, e notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

var defaultLimits = map[string]WithdrawalLimits{
	models.RoleTutor:      {Min: dec("10"), Max: dec("5000")},
	models.RoleMentor:     {Min: dec("10"), Max: dec("5000")},
	models.RoleResearcher: {Min: dec("20"), Max: dec("10000")},
}

// seedEarnings records a completed payment whose earner share is share.
func seedEarnings(t *testing.T, store *memstore.Store, earnerID uuid.UUID, share string) {
	t.Helper()
	err := store.CreatePayment(context.Background(), &models.Payment{
		UserID:          uuid.New(),
		Kind:            models.PaymentKindCourseSale,
		EarnerID:        earnerID,
		Amount:          dec(share),
		Currency:        "USD",
		Provider:        "stripe",
		TransactionID:   "pi_" + uuid.NewString(),
		Status:          models.PaymentStatusCompleted,
		AdminCommission: decimal.Zero,
		TutorAmount:     dec(share),
		PaymentDate:     fixedNow.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
}

type fakeCards struct {
	intents map[string]*payments.PaymentIntent
	err     error
	created int
}

func (f *fakeCards) CreatePaymentIntent(_ context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*payments.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created++
	pi := &payments.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%d", f.created),
		ClientSecret: "secret",
		Status:       "requires_payment_method",
		Amount:       amount,
		Currency:     currency,
		Metadata:     metadata,
	}
	if f.intents == nil {
		f.intents = make(map[string]*payments.PaymentIntent)
	}
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *fakeCards) GetPaymentIntent(_ context.Context, id string) (*payments.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	pi, ok := f.intents[id]
	if !ok {
		return nil, &payments.GatewayRejectedError{Operation: "get payment intent", Message: "No such payment_intent"}
	}
	return pi, nil
}

type fakePayouts struct {
	account     *payments.ResolvedAccount
	validateErr error
	transferErr error
	transfers   []payments.TransferRequest
}

func (f *fakePayouts) ValidateAccount(_ context.Context, accountNumber, _ string) (*payments.ResolvedAccount, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	if f.account != nil {
		return f.account, nil
	}
	return &payments.ResolvedAccount{AccountNumber: accountNumber, AccountName: "ADA OBI"}, nil
}

func (f *fakePayouts) InitiateTransfer(_ context.Context, req payments.TransferRequest) (*payments.Transfer, error) {
	f.transfers = append(f.transfers, req)
	if f.transferErr != nil {
		return nil, f.transferErr
	}
	return &payments.Transfer{ID: 1, Reference: req.Reference, Status: "NEW", Amount: req.Amount}, nil
}

type fakeLinks struct {
	requests []payments.PaymentLinkRequest
	err      error
}

func (f *fakeLinks) CreatePaymentLink(_ context.Context, req payments.PaymentLinkRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.flutterwave.test/" + req.TxRef, nil
}

var errNetwork = errors.New("dial tcp: connection refused")
