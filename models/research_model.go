package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResearchAccessPeriod is how long a research purchase grants access.
const ResearchAccessPeriod = 90 * 24 * time.Hour

type ResearchProject struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title        string          `gorm:"size:255;not null" json:"title"`
	ResearcherID uuid.UUID       `gorm:"type:uuid;not null;index" json:"researcher_id"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ResearchPurchase struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	ProjectID        uuid.UUID       `gorm:"type:uuid;not null" json:"project_id"`
	ResearcherID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"researcher_id"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	TransactionID    string          `gorm:"size:255;not null;unique" json:"transaction_id"`
	Status           string          `gorm:"size:20;not null" json:"status"`
	AdminCommission  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"admin_commission"`
	ResearcherAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"researcher_amount"`
	PurchaseDate     time.Time       `gorm:"not null" json:"purchase_date"`
	AccessExpiresAt  time.Time       `gorm:"not null" json:"access_expires_at"`

	CreatedAt time.Time `json:"created_at"`
}
