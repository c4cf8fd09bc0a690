package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/storage/memstore"
)

type mentorFixture struct {
	store      *memstore.Store
	svc        *MentorService
	mentor     models.User
	mentee     models.User
	mentorship models.Mentorship
}

func newMentorFixture() *mentorFixture {
	store := memstore.New()
	f := &mentorFixture{
		store:  store,
		mentor: store.AddUser(models.User{Role: models.RoleMentor}),
		mentee: store.AddUser(models.User{Role: models.RoleStudent}),
	}
	f.mentorship = store.AddMentorship(models.Mentorship{MentorID: f.mentor.ID, MenteeID: f.mentee.ID, SessionPrice: dec("40")})
	f.svc = NewMentorService(store, &recordingNotifier{})
	f.svc.SetClock(func() time.Time { return fixedNow })
	return f
}

func (f *mentorFixture) book(requester uuid.UUID, day int, clock string, minutes int) (*models.MentorSession, error) {
	return f.svc.BookSession(context.Background(), BookSessionRequest{
		MentorshipID:  f.mentorship.ID,
		RequesterID:   requester,
		ScheduledDate: time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		ScheduledTime: clock,
		Duration:      minutes,
	})
}

func TestBookSession(t *testing.T) {
	f := newMentorFixture()

	s, err := f.book(f.mentee.ID, 13, "14:00", 60)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusScheduled, s.Status)
	assert.Equal(t, f.mentor.ID, s.MentorID)

	_, err = f.book(f.mentor.ID, 13, "14:30", 30)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.book(f.mentor.ID, 13, "15:00", 30)
	assert.NoError(t, err)
}

func TestBookSessionRejections(t *testing.T) {
	f := newMentorFixture()

	_, err := f.book(uuid.New(), 13, "14:00", 60)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.book(f.mentee.ID, 11, "14:00", 60)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.book(f.mentee.ID, 13, "2pm", 60)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.book(f.mentee.ID, 13, "14:00", 0)
	assert.ErrorIs(t, err, ErrValidation)

	paused := f.store.AddMentorship(models.Mentorship{
		MentorID: f.mentor.ID, MenteeID: f.mentee.ID, Status: models.MentorshipStatusPending,
	})
	_, err = f.svc.BookSession(context.Background(), BookSessionRequest{
		MentorshipID:  paused.ID,
		RequesterID:   f.mentee.ID,
		ScheduledDate: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		ScheduledTime: "09:00",
		Duration:      30,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateSessionStatus(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	s, err := f.book(f.mentee.ID, 13, "14:00", 60)
	require.NoError(t, err)

	_, err = f.svc.UpdateSessionStatus(ctx, s.ID, f.mentee.ID, models.SessionStatusCompleted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateSessionStatus(ctx, s.ID, f.mentor.ID, models.SessionStatusScheduled)
	assert.ErrorIs(t, err, ErrValidation)

	done, err := f.svc.UpdateSessionStatus(ctx, s.ID, f.mentor.ID, models.SessionStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, done.Status)

	_, err = f.svc.UpdateSessionStatus(ctx, s.ID, f.mentor.ID, models.SessionStatusCanceled)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMentorEarningsIgnoreSessionsWithoutPayments(t *testing.T) {
	f := newMentorFixture()
	ctx := context.Background()
	s, err := f.book(f.mentee.ID, 13, "14:00", 60)
	require.NoError(t, err)
	_, err = f.svc.UpdateSessionStatus(ctx, s.ID, f.mentor.ID, models.SessionStatusCompleted)
	require.NoError(t, err)
	_, err = f.book(f.mentee.ID, 14, "10:00", 60)
	require.NoError(t, err)

	earnings, err := f.svc.Earnings(ctx, f.mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, earnings.CompletedSessions)
	assert.Equal(t, 1, earnings.UpcomingSessions)
	requireDecimal(t, "0", earnings.Available)
}

func TestMentorWithdrawalBlockedByUnresolvedSession(t *testing.T) {
	f := newMentorFixture()
	seedEarnings(t, f.store, f.mentor.ID, "100")
	_, err := f.book(f.mentee.ID, 13, "14:00", 60)
	require.NoError(t, err)

	withdrawals := NewWithdrawalService(f.store, defaultLimits, &seqIDs{}, nil)
	withdrawals.SetClock(func() time.Time { return fixedNow })
	req := WithdrawalRequest{EarnerID: f.mentor.ID, Amount: dec("50"), ConflictCheck: f.svc.UnresolvedSessionsCheck()}

	_, err = withdrawals.RequestWithdrawal(context.Background(), req)
	require.NoError(t, err)

	// the session has now started but was never closed
	f.svc.SetClock(func() time.Time { return fixedNow.Add(48 * time.Hour) })
	_, err = withdrawals.RequestWithdrawal(context.Background(), req)
	assert.ErrorIs(t, err, ErrConflict)
}
