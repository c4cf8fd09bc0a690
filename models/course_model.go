package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Course struct {
	ID       uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title    string          `gorm:"size:255;not null" json:"title"`
	TutorID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"tutor_id"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency string          `gorm:"size:3;default:'USD'" json:"currency"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
