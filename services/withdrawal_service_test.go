package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/storage"
	"github.com/wisdomAdida/edmerge/storage/memstore"
)

type withdrawalFixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	svc      *WithdrawalService
	tutor    models.User
	admin    models.User
}

func newWithdrawalFixture(t *testing.T, earnings string) *withdrawalFixture {
	t.Helper()
	store := memstore.New()
	f := &withdrawalFixture{
		store:    store,
		notifier: &recordingNotifier{},
		tutor:    store.AddUser(models.User{FullName: "Tess Tutor", Role: models.RoleTutor}),
		admin:    store.AddUser(models.User{FullName: "Ada Admin", Role: models.RoleAdmin}),
	}
	f.svc = NewWithdrawalService(store, defaultLimits, &seqIDs{}, f.notifier)
	f.svc.SetClock(func() time.Time { return fixedNow })
	if earnings != "" {
		seedEarnings(t, store, f.tutor.ID, earnings)
	}
	return f
}

func (f *withdrawalFixture) request(amount string) (*models.Withdrawal, error) {
	return f.svc.RequestWithdrawal(context.Background(), WithdrawalRequest{
		EarnerID: f.tutor.ID,
		Amount:   dec(amount),
	})
}

func (f *withdrawalFixture) rows(t *testing.T) []models.Withdrawal {
	t.Helper()
	rows, err := f.store.ListWithdrawalsByEarner(context.Background(), f.tutor.ID)
	require.NoError(t, err)
	return rows
}

func TestRequestWithdrawalCreatesPendingRow(t *testing.T) {
	f := newWithdrawalFixture(t, "100")

	w, err := f.request("40")
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalStatusPending, w.Status)
	assert.Equal(t, models.WithdrawalChannelManual, w.Channel)
	assert.Equal(t, "WD-1", w.TransactionID)
	assert.Equal(t, fixedNow, w.RequestDate)
	assert.Equal(t, EstimatedCompletionDate(fixedNow, ManualSettlementDays), w.EstimatedCompletionDate)
	assert.Equal(t, models.RoleTutor, w.EarnerRole)

	b, err := LoadBalance(context.Background(), f.store, f.tutor.ID)
	require.NoError(t, err)
	requireDecimal(t, "40", b.PendingHold)
	requireDecimal(t, "60", b.Available)
}

func TestRequestWithdrawalNotifiesEarnerAndAdmins(t *testing.T) {
	f := newWithdrawalFixture(t, "100")

	_, err := f.request("40")
	require.NoError(t, err)

	require.Len(t, f.notifier.events, 1)
	e := f.notifier.events[0]
	assert.Equal(t, notifications.EventWithdrawalRequested, e.Type)
	assert.ElementsMatch(t, []uuid.UUID{f.tutor.ID, f.admin.ID}, e.Recipients)
	assert.True(t, e.AlertAdmins)
}

func TestRequestWithdrawalSurvivesNotificationFailure(t *testing.T) {
	f := newWithdrawalFixture(t, "100")
	f.notifier.err = errNetwork

	w, err := f.request("40")
	require.NoError(t, err)
	assert.Len(t, f.rows(t), 1)
	assert.Equal(t, w.ID, f.rows(t)[0].ID)
}

func TestRequestWithdrawalRejectsNonPositiveAmount(t *testing.T) {
	f := newWithdrawalFixture(t, "100")

	for _, amount := range []string{"0", "-5"} {
		_, err := f.request(amount)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Empty(t, f.rows(t))
}

func TestRequestWithdrawalInsufficientFunds(t *testing.T) {
	f := newWithdrawalFixture(t, "50")

	_, err := f.request("50.01")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
	assert.Empty(t, f.rows(t))
	assert.Empty(t, f.notifier.events)
}

func TestRequestWithdrawalCountsPendingHolds(t *testing.T) {
	f := newWithdrawalFixture(t, "100")

	_, err := f.request("60")
	require.NoError(t, err)
	_, err = f.request("60")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Len(t, f.rows(t), 1)
}

func TestRequestWithdrawalLimitViolation(t *testing.T) {
	f := newWithdrawalFixture(t, "10000")

	_, err := f.request("5")
	assert.ErrorIs(t, err, ErrLimitViolation)
	_, err = f.request("5000.01")
	assert.ErrorIs(t, err, ErrLimitViolation)
	assert.Empty(t, f.rows(t))

	_, err = f.request("5000")
	assert.NoError(t, err)
}

func TestRequestWithdrawalChecksFundsBeforeLimits(t *testing.T) {
	f := newWithdrawalFixture(t, "3")

	_, err := f.request("5")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRequestWithdrawalForbiddenForNonEarner(t *testing.T) {
	f := newWithdrawalFixture(t, "")
	student := f.store.AddUser(models.User{Role: models.RoleStudent})

	_, err := f.svc.RequestWithdrawal(context.Background(), WithdrawalRequest{EarnerID: student.ID, Amount: dec("10")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.RequestWithdrawal(context.Background(), WithdrawalRequest{EarnerID: uuid.New(), Amount: dec("10")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestWithdrawalConflictCheckVetoes(t *testing.T) {
	f := newWithdrawalFixture(t, "100")

	_, err := f.svc.RequestWithdrawal(context.Background(), WithdrawalRequest{
		EarnerID: f.tutor.ID,
		Amount:   dec("20"),
		ConflictCheck: func(context.Context, storage.Storage, uuid.UUID) error {
			return newError(CodeConflict, "busy")
		},
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.rows(t))
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	f := newWithdrawalFixture(t, "100")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.request("60")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.rows(t), 1)
}

func TestCompleteAndFailWithdrawal(t *testing.T) {
	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	first, err := f.request("30")
	require.NoError(t, err)
	second, err := f.request("20")
	require.NoError(t, err)

	done, err := f.svc.CompleteWithdrawal(ctx, first.ID, "paid by bank transfer")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusCompleted, done.Status)
	require.NotNil(t, done.ProcessedAt)
	require.NotNil(t, done.AdminNotes)

	failed, err := f.svc.FailWithdrawal(ctx, second.ID, "account closed")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusFailed, failed.Status)
	assert.Equal(t, "account closed", *failed.FailureReason)

	b, err := LoadBalance(ctx, f.store, f.tutor.ID)
	require.NoError(t, err)
	requireDecimal(t, "30", b.Withdrawn)
	requireDecimal(t, "0", b.PendingHold)
	requireDecimal(t, "70", b.Available)

	_, err = f.svc.FailWithdrawal(ctx, first.ID, "too late")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.CompleteWithdrawal(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	rows := f.rows(t)
	assert.Len(t, rows, 2)
}

func TestApplyTransferWebhook(t *testing.T) {
	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	w, err := f.request("30")
	require.NoError(t, err)

	same, err := f.svc.ApplyTransferWebhook(ctx, w.TransactionID, "NEW")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, same.Status)

	done, err := f.svc.ApplyTransferWebhook(ctx, w.TransactionID, "SUCCESSFUL")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusCompleted, done.Status)

	again, err := f.svc.ApplyTransferWebhook(ctx, w.TransactionID, "FAILED")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusCompleted, again.Status)

	_, err = f.svc.ApplyTransferWebhook(ctx, "WD-unknown", "SUCCESSFUL")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireStaleWithdrawals(t *testing.T) {
	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	old, err := f.request("30")
	require.NoError(t, err)

	f.svc.SetClock(func() time.Time { return fixedNow.Add(10 * 24 * time.Hour) })
	fresh, err := f.request("20")
	require.NoError(t, err)

	f.svc.SetClock(func() time.Time { return fixedNow.Add(15 * 24 * time.Hour) })
	n, err := f.svc.ExpireStaleWithdrawals(ctx, 14*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusFailed, got.Status)
	got, err = f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, got.Status)
}
