// Package storage declares the persistence boundary the ledger core depends on.
// Implementations live in database (Postgres via GORM) and storage/memstore.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomAdida/edmerge/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleStatus is returned by conditional transitions when the record
	// is no longer in the expected status.
	ErrStaleStatus = errors.New("record status changed")
)

type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

type LedgerStore interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error
	ListPaymentsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Payment, error)
	ListCompletedPaymentsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Payment, error)

	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	GetWithdrawalByTransactionID(ctx context.Context, transactionID string) (*models.Withdrawal, error)
	ListWithdrawalsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status string) ([]models.Withdrawal, error)
	ListStalePendingWithdrawals(ctx context.Context, requestedBefore time.Time) ([]models.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, w *models.Withdrawal) error
}

type ResearchStore interface {
	GetResearchProject(ctx context.Context, id uuid.UUID) (*models.ResearchProject, error)
	CreateResearchPurchase(ctx context.Context, p *models.ResearchPurchase) error
	GetResearchPurchaseByTransactionID(ctx context.Context, transactionID string) (*models.ResearchPurchase, error)
	ListCompletedResearchPurchasesByResearcher(ctx context.Context, researcherID uuid.UUID) ([]models.ResearchPurchase, error)
}

type MentorStore interface {
	GetMentorship(ctx context.Context, id uuid.UUID) (*models.Mentorship, error)
	CreateMentorSession(ctx context.Context, s *models.MentorSession) error
	GetMentorSession(ctx context.Context, id uuid.UUID) (*models.MentorSession, error)
	UpdateMentorSession(ctx context.Context, s *models.MentorSession) error
	ListSessionsByMentor(ctx context.Context, mentorID uuid.UUID) ([]models.MentorSession, error)
}

type SubscriptionStore interface {
	GetSubscriptionPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	GetSubscriptionByTransactionID(ctx context.Context, transactionID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, s *models.Subscription) error
	ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error)

	CreateSubscriptionKey(ctx context.Context, k *models.SubscriptionKey) error
	GetSubscriptionKey(ctx context.Context, id uuid.UUID) (*models.SubscriptionKey, error)
	SubscriptionKeyCodeExists(ctx context.Context, code string) (bool, error)
	// TransitionSubscriptionKey moves the key from one status to another only
	// if it is still in from.
	TransitionSubscriptionKey(ctx context.Context, id uuid.UUID, from, to string) error
	ListExpiredActiveKeys(ctx context.Context, now time.Time) ([]models.SubscriptionKey, error)
}

// Storage is everything the ledger core reads and writes.
type Storage interface {
	UserStore
	LedgerStore
	ResearchStore
	MentorStore
	SubscriptionStore

	// WithEarnerLock runs fn with exclusive access to the earner's ledger.
	// Writes made through the Storage passed to fn are committed together
	// when fn returns nil and discarded otherwise.
	WithEarnerLock(ctx context.Context, earnerID uuid.UUID, fn func(tx Storage) error) error
}
