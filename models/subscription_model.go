package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SubscriptionStatusPending  = "pending"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusExpired  = "expired"
	SubscriptionStatusCanceled = "canceled"
)

const (
	KeyStatusActive  = "active"
	KeyStatusUsed    = "used"
	KeyStatusExpired = "expired"
	KeyStatusRevoked = "revoked"
)

type SubscriptionPlan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency     string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	DurationDays int             `gorm:"not null" json:"duration_days"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
}

type Subscription struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID        uuid.UUID  `gorm:"type:uuid;not null" json:"plan_id"`
	Status        string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	TransactionID string     `gorm:"size:64;not null;unique" json:"transaction_id"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SubscriptionKey struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Code      string     `gorm:"size:32;not null;unique" json:"code"`
	PlanID    uuid.UUID  `gorm:"type:uuid;not null" json:"plan_id"`
	Status    string     `gorm:"size:20;not null;default:'active'" json:"status"`
	UsedBy    *uuid.UUID `gorm:"type:uuid" json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
