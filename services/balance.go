package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/storage"
)

type Balance struct {
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	Withdrawn     decimal.Decimal `json:"withdrawn"`
	PendingHold   decimal.Decimal `json:"pending_hold"`
	Available     decimal.Decimal `json:"available_balance"`
}

// ComputeBalance derives an earner's balance from the ledger rows. The result
// is not clamped: a negative Available means the ledger was overdrawn.
func ComputeBalance(payments []models.Payment, purchases []models.ResearchPurchase, withdrawals []models.Withdrawal) Balance {
	b := Balance{
		TotalEarnings: decimal.Zero,
		Withdrawn:     decimal.Zero,
		PendingHold:   decimal.Zero,
	}
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			b.TotalEarnings = b.TotalEarnings.Add(p.TutorAmount)
		}
	}
	for _, p := range purchases {
		if p.Status == models.PaymentStatusCompleted {
			b.TotalEarnings = b.TotalEarnings.Add(p.ResearcherAmount)
		}
	}
	for _, w := range withdrawals {
		switch w.Status {
		case models.WithdrawalStatusCompleted:
			b.Withdrawn = b.Withdrawn.Add(w.Amount)
		case models.WithdrawalStatusPending:
			b.PendingHold = b.PendingHold.Add(w.Amount)
		}
	}
	b.Available = b.TotalEarnings.Sub(b.Withdrawn).Sub(b.PendingHold)
	return b
}

type balanceReader interface {
	ListCompletedPaymentsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Payment, error)
	ListCompletedResearchPurchasesByResearcher(ctx context.Context, researcherID uuid.UUID) ([]models.ResearchPurchase, error)
	ListWithdrawalsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Withdrawal, error)
}

var _ balanceReader = (storage.Storage)(nil)

// LoadBalance recomputes the earner's balance from scratch.
func LoadBalance(ctx context.Context, store balanceReader, earnerID uuid.UUID) (Balance, error) {
	payments, err := store.ListCompletedPaymentsByEarner(ctx, earnerID)
	if err != nil {
		return Balance{}, err
	}
	purchases, err := store.ListCompletedResearchPurchasesByResearcher(ctx, earnerID)
	if err != nil {
		return Balance{}, err
	}
	withdrawals, err := store.ListWithdrawalsByEarner(ctx, earnerID)
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(payments, purchases, withdrawals), nil
}

type BalanceService struct {
	store storage.Storage
}

func NewBalanceService(store storage.Storage) *BalanceService {
	return &BalanceService{store: store}
}

func (s *BalanceService) ComputeAvailableBalance(ctx context.Context, earnerID uuid.UUID) (decimal.Decimal, error) {
	b, err := LoadBalance(ctx, s.store, earnerID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Available, nil
}

func (s *BalanceService) Breakdown(ctx context.Context, earnerID uuid.UUID) (Balance, error) {
	return LoadBalance(ctx, s.store, earnerID)
}

const recentLimit = 20

// EarningsReport is an earner's balance with their latest sales.
type EarningsReport struct {
	Balance             Balance                   `json:"balance"`
	RecentPayments      []models.Payment          `json:"recent_payments"`
	RecentResearchSales []models.ResearchPurchase `json:"recent_research_sales,omitempty"`
}

func (s *BalanceService) Report(ctx context.Context, earnerID uuid.UUID) (*EarningsReport, error) {
	payments, err := s.store.ListPaymentsByEarner(ctx, earnerID)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.ListCompletedResearchPurchasesByResearcher(ctx, earnerID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.store.ListWithdrawalsByEarner(ctx, earnerID)
	if err != nil {
		return nil, err
	}

	var completed []models.Payment
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			completed = append(completed, p)
		}
	}
	report := &EarningsReport{
		Balance:             ComputeBalance(completed, sales, withdrawals),
		RecentPayments:      payments,
		RecentResearchSales: sales,
	}
	if len(report.RecentPayments) > recentLimit {
		report.RecentPayments = report.RecentPayments[:recentLimit]
	}
	if len(report.RecentResearchSales) > recentLimit {
		report.RecentResearchSales = report.RecentResearchSales[:recentLimit]
	}
	return report, nil
}
