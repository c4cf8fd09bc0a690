package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusFailed    = "failed"
)

const (
	WithdrawalChannelManual      = "manual"
	WithdrawalChannelFlutterwave = "flutterwave"
)

type AccountDetails struct {
	AccountNumber string `json:"account_number,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
}

func (a AccountDetails) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AccountDetails) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = AccountDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("account details: unsupported column type")
}

type Withdrawal struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TutorID                 uuid.UUID       `gorm:"type:uuid;not null;index" json:"tutor_id"`
	EarnerRole              string          `gorm:"size:20;not null" json:"earner_role"`
	Amount                  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status                  string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	Channel                 string          `gorm:"size:20;not null;default:'manual'" json:"channel"`
	TransactionID           string          `gorm:"size:64;not null;unique" json:"transaction_id"`
	RequestDate             time.Time       `gorm:"not null" json:"request_date"`
	EstimatedCompletionDate time.Time       `gorm:"not null" json:"estimated_completion_date"`
	ProcessedAt             *time.Time      `json:"processed_at,omitempty"`
	AccountDetails          AccountDetails  `gorm:"type:jsonb" json:"account_details"`
	AdminNotes              *string         `gorm:"type:text" json:"admin_notes,omitempty"`
	FailureReason           *string         `gorm:"type:text" json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
