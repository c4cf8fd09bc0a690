package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/notifications"
	"github.com/wisdomAdida/edmerge/storage"
)

const maxSessionMinutes = 240

type BookSessionRequest struct {
	MentorshipID  uuid.UUID
	RequesterID   uuid.UUID
	ScheduledDate time.Time
	ScheduledTime string
	Duration      int
}

type MentorEarnings struct {
	Balance
	CompletedSessions int `json:"completed_sessions"`
	UpcomingSessions  int `json:"upcoming_sessions"`
}

type MentorService struct {
	store    storage.Storage
	notifier Notifier
	now      func() time.Time
}

func NewMentorService(store storage.Storage, notifier Notifier) *MentorService {
	return &MentorService{store: store, notifier: notifier, now: time.Now}
}

func (s *MentorService) SetClock(now func() time.Time) { s.now = now }

// BookSession schedules a session on an active mentorship. Bookings for one
// mentor are serialised so two overlapping requests cannot both succeed.
func (s *MentorService) BookSession(ctx context.Context, req BookSessionRequest) (*models.MentorSession, error) {
	if req.Duration <= 0 || req.Duration > maxSessionMinutes {
		return nil, newError(CodeValidation, "duration must be between 1 and 240 minutes")
	}
	session := models.MentorSession{
		MentorshipID:  req.MentorshipID,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
		Duration:      req.Duration,
		Status:        models.SessionStatusScheduled,
	}
	start, err := session.StartsAt()
	if err != nil {
		return nil, newError(CodeValidation, "scheduled time must be HH:MM")
	}
	if !start.After(s.now()) {
		return nil, newError(CodeValidation, "session must start in the future")
	}

	m, err := s.store.GetMentorship(ctx, req.MentorshipID)
	if err != nil {
		return nil, notFound(err, "mentorship")
	}
	if req.RequesterID != m.MentorID && req.RequesterID != m.MenteeID {
		return nil, newError(CodeForbidden, "not a participant of this mentorship")
	}
	if m.Status != models.MentorshipStatusActive {
		return nil, newError(CodeConflict, "mentorship is "+m.Status)
	}
	session.MentorID = m.MentorID

	end := start.Add(time.Duration(req.Duration) * time.Minute)
	err = s.store.WithEarnerLock(ctx, m.MentorID, func(tx storage.Storage) error {
		existing, err := tx.ListSessionsByMentor(ctx, m.MentorID)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.Status != models.SessionStatusScheduled {
				continue
			}
			otherStart, err := other.StartsAt()
			if err != nil {
				continue
			}
			otherEnd := otherStart.Add(time.Duration(other.Duration) * time.Minute)
			if start.Before(otherEnd) && otherStart.Before(end) {
				return newError(CodeConflict, "mentor already has a session at "+otherStart.Format("2006-01-02 15:04"))
			}
		}
		return tx.CreateMentorSession(ctx, &session)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"session_id":    session.ID,
		"mentorship_id": session.MentorshipID,
		"starts_at":     start,
	}).Info("Mentor session booked")
	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSessionBooked,
		Recipients: []uuid.UUID{m.MentorID, m.MenteeID},
		Payload:    session,
	})
	return &session, nil
}

// UpdateSessionStatus closes a scheduled session as completed or canceled.
func (s *MentorService) UpdateSessionStatus(ctx context.Context, sessionID, mentorID uuid.UUID, status string) (*models.MentorSession, error) {
	if status != models.SessionStatusCompleted && status != models.SessionStatusCanceled {
		return nil, newError(CodeValidation, "status must be completed or canceled")
	}
	session, err := s.store.GetMentorSession(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "session")
	}
	if session.MentorID != mentorID {
		return nil, newError(CodeForbidden, "session belongs to another mentor")
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, newError(CodeConflict, "session is already "+session.Status)
	}
	session.Status = status
	if err := s.store.UpdateMentorSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *MentorService) ListSessions(ctx context.Context, mentorID uuid.UUID) ([]models.MentorSession, error) {
	return s.store.ListSessionsByMentor(ctx, mentorID)
}

// Earnings reports the mentor's balance, which counts completed mentorship
// payments only, alongside session counts.
func (s *MentorService) Earnings(ctx context.Context, mentorID uuid.UUID) (*MentorEarnings, error) {
	balance, err := LoadBalance(ctx, s.store, mentorID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessionsByMentor(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	out := &MentorEarnings{Balance: balance}
	now := s.now()
	for _, session := range sessions {
		switch session.Status {
		case models.SessionStatusCompleted:
			out.CompletedSessions++
		case models.SessionStatusScheduled:
			if start, err := session.StartsAt(); err == nil && start.After(now) {
				out.UpcomingSessions++
			}
		}
	}
	return out, nil
}

// UnresolvedSessionsCheck blocks a mentor withdrawal while any session whose
// start time has passed is still marked scheduled.
func (s *MentorService) UnresolvedSessionsCheck() ConflictCheck {
	return func(ctx context.Context, tx storage.Storage, mentorID uuid.UUID) error {
		sessions, err := tx.ListSessionsByMentor(ctx, mentorID)
		if err != nil {
			return err
		}
		now := s.now()
		for _, session := range sessions {
			if session.Status != models.SessionStatusScheduled {
				continue
			}
			start, err := session.StartsAt()
			if err != nil || start.Before(now) {
				return newError(CodeConflict, "mark past sessions completed or canceled before withdrawing")
			}
		}
		return nil
	}
}
