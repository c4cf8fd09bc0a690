package services

import (
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindCourseSale       TransactionKind = "course_sale"
	KindResearchPurchase TransactionKind = "research_purchase"
	KindMentorship       TransactionKind = "mentorship"
)

var platformRates = map[TransactionKind]decimal.Decimal{
	KindCourseSale:       decimal.RequireFromString("0.30"),
	KindResearchPurchase: decimal.RequireFromString("0.30"),
	KindMentorship:       decimal.RequireFromString("0.30"),
}

// Split is the division of a gross amount between the platform and the earner.
// PlatformShare + EarnerShare always equals the gross amount.
type Split struct {
	PlatformShare decimal.Decimal `json:"platform_share"`
	EarnerShare   decimal.Decimal `json:"earner_share"`
}

// SplitCommission rounds the platform cut to cents and gives the remainder to
// the earner, so no rounding leaks out of the sum.
func SplitCommission(amount decimal.Decimal, kind TransactionKind) (Split, error) {
	rate, ok := platformRates[kind]
	if !ok {
		return Split{}, newError(CodeValidation, "unknown transaction kind "+string(kind))
	}
	if amount.IsNegative() {
		return Split{}, newError(CodeValidation, "amount must not be negative")
	}

	platform := amount.Mul(rate).Round(2)
	return Split{
		PlatformShare: platform,
		EarnerShare:   amount.Sub(platform),
	}, nil
}
