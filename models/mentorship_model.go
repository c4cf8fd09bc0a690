package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MentorshipStatusPending   = "pending"
	MentorshipStatusActive    = "active"
	MentorshipStatusCompleted = "completed"
	MentorshipStatusCanceled  = "canceled"
)

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCompleted = "completed"
	SessionStatusCanceled  = "canceled"
)

type Mentorship struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MentorID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"mentor_id"`
	MenteeID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"mentee_id"`
	SessionPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"session_price"`
	Status       string          `gorm:"size:20;not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MentorSession struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MentorshipID  uuid.UUID `gorm:"type:uuid;not null;index" json:"mentorship_id"`
	MentorID      uuid.UUID `gorm:"type:uuid;not null;index" json:"mentor_id"`
	ScheduledDate time.Time `gorm:"type:date;not null" json:"scheduled_date"`
	ScheduledTime string    `gorm:"size:5;not null" json:"scheduled_time"`
	Duration      int       `gorm:"not null" json:"duration"`
	Status        string    `gorm:"size:20;not null;default:'scheduled'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StartsAt combines the scheduled date and HH:MM time in the date's location.
func (s MentorSession) StartsAt() (time.Time, error) {
	clock, err := time.Parse("15:04", s.ScheduledTime)
	if err != nil {
		return time.Time{}, err
	}
	d := s.ScheduledDate
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, d.Location()), nil
}
