package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

const (
	PaymentKindCourseSale = "course_sale"
	PaymentKindMentorship = "mentorship"
)

// Payment is a buyer's purchase of a course or a mentorship. TutorAmount is the
// earner's share, whoever the earner is.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID        *uuid.UUID      `gorm:"type:uuid" json:"course_id,omitempty"`
	MentorshipID    *uuid.UUID      `gorm:"type:uuid" json:"mentorship_id,omitempty"`
	Kind            string          `gorm:"size:20;not null" json:"kind"`
	EarnerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"earner_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Provider        string          `gorm:"size:20;not null" json:"provider"`
	TransactionID   string          `gorm:"size:255;not null;unique" json:"transaction_id"`
	Status          string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	AdminCommission decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"admin_commission"`
	TutorAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tutor_amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
