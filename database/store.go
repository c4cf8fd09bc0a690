package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the Postgres-backed storage.Storage.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicate
	}
	return err
}

func (s *Store) first(ctx context.Context, out interface{}, query string, args ...interface{}) error {
	return translate(s.db.WithContext(ctx).Where(query, args...).First(out).Error)
}

func (s *Store) create(ctx context.Context, value interface{}) error {
	return translate(s.db.WithContext(ctx).Create(value).Error)
}

func (s *Store) save(ctx context.Context, value interface{}) error {
	return translate(s.db.WithContext(ctx).Save(value).Error)
}

// WithEarnerLock runs fn inside a transaction holding a row lock on the
// earner's users row. Every ledger write for that earner that goes through
// this method is serialised behind the lock.
func (s *Store) WithEarnerLock(ctx context.Context, earnerID uuid.UUID, fn func(tx storage.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var earner models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", earnerID).
			First(&earner).Error
		if err != nil {
			return translate(err)
		}
		return fn(&Store{db: tx})
	})
}

// Users and catalogue

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.first(ctx, &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ? AND is_active = ?", role, true).
		Pluck("id", &ids).Error
	return ids, translate(err)
}

func (s *Store) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var c models.Course
	if err := s.first(ctx, &c, "id = ?", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// Payments

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return s.create(ctx, p)
}

func (s *Store) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.first(ctx, &p, "transaction_id = ?", transactionID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := s.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListPaymentsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	err := s.db.WithContext(ctx).Where("earner_id = ?", earnerID).Order("payment_date DESC").Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListCompletedPaymentsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	err := s.db.WithContext(ctx).
		Where("earner_id = ? AND status = ?", earnerID, models.PaymentStatusCompleted).
		Order("payment_date DESC").
		Find(&out).Error
	return out, translate(err)
}

// Withdrawals

func (s *Store) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	return s.create(ctx, w)
}

func (s *Store) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.first(ctx, &w, "id = ?", id); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) GetWithdrawalByTransactionID(ctx context.Context, transactionID string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.first(ctx, &w, "transaction_id = ?", transactionID); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) ListWithdrawalsByEarner(ctx context.Context, earnerID uuid.UUID) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	err := s.db.WithContext(ctx).Where("tutor_id = ?", earnerID).Order("request_date DESC").Find(&out).Error
	return out, translate(err)
}

// ListWithdrawalsByStatus lists every withdrawal when status is empty.
func (s *Store) ListWithdrawalsByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	q := s.db.WithContext(ctx).Order("request_date DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Withdrawal
	return out, translate(q.Find(&out).Error)
}

func (s *Store) ListStalePendingWithdrawals(ctx context.Context, requestedBefore time.Time) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("status = ? AND request_date < ?", models.WithdrawalStatusPending, requestedBefore).
		Order("request_date ASC").
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) UpdateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	return s.save(ctx, w)
}

// Research

func (s *Store) GetResearchProject(ctx context.Context, id uuid.UUID) (*models.ResearchProject, error) {
	var p models.ResearchProject
	if err := s.first(ctx, &p, "id = ?", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateResearchPurchase(ctx context.Context, p *models.ResearchPurchase) error {
	return s.create(ctx, p)
}

func (s *Store) GetResearchPurchaseByTransactionID(ctx context.Context, transactionID string) (*models.ResearchPurchase, error) {
	var p models.ResearchPurchase
	if err := s.first(ctx, &p, "transaction_id = ?", transactionID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListCompletedResearchPurchasesByResearcher(ctx context.Context, researcherID uuid.UUID) ([]models.ResearchPurchase, error) {
	var out []models.ResearchPurchase
	err := s.db.WithContext(ctx).
		Where("researcher_id = ? AND status = ?", researcherID, models.PaymentStatusCompleted).
		Order("purchase_date DESC").
		Find(&out).Error
	return out, translate(err)
}

// Mentorship

func (s *Store) GetMentorship(ctx context.Context, id uuid.UUID) (*models.Mentorship, error) {
	var m models.Mentorship
	if err := s.first(ctx, &m, "id = ?", id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMentorSession(ctx context.Context, ms *models.MentorSession) error {
	return s.create(ctx, ms)
}

func (s *Store) GetMentorSession(ctx context.Context, id uuid.UUID) (*models.MentorSession, error) {
	var ms models.MentorSession
	if err := s.first(ctx, &ms, "id = ?", id); err != nil {
		return nil, err
	}
	return &ms, nil
}

func (s *Store) UpdateMentorSession(ctx context.Context, ms *models.MentorSession) error {
	return s.save(ctx, ms)
}

func (s *Store) ListSessionsByMentor(ctx context.Context, mentorID uuid.UUID) ([]models.MentorSession, error) {
	var out []models.MentorSession
	err := s.db.WithContext(ctx).
		Where("mentor_id = ?", mentorID).
		Order("scheduled_date ASC, scheduled_time ASC").
		Find(&out).Error
	return out, translate(err)
}

// Subscriptions

func (s *Store) GetSubscriptionPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := s.first(ctx, &p, "id = ?", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.create(ctx, sub)
}

func (s *Store) GetSubscriptionByTransactionID(ctx context.Context, transactionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.first(ctx, &sub, "transaction_id = ?", transactionID); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.save(ctx, sub)
}

func (s *Store) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", models.SubscriptionStatusActive, now).
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateSubscriptionKey(ctx context.Context, k *models.SubscriptionKey) error {
	return s.create(ctx, k)
}

func (s *Store) GetSubscriptionKey(ctx context.Context, id uuid.UUID) (*models.SubscriptionKey, error) {
	var k models.SubscriptionKey
	if err := s.first(ctx, &k, "id = ?", id); err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *Store) SubscriptionKeyCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SubscriptionKey{}).Where("code = ?", code).Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) TransitionSubscriptionKey(ctx context.Context, id uuid.UUID, from, to string) error {
	res := s.db.WithContext(ctx).
		Model(&models.SubscriptionKey{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrStaleStatus
	}
	return nil
}

func (s *Store) ListExpiredActiveKeys(ctx context.Context, now time.Time) ([]models.SubscriptionKey, error) {
	var out []models.SubscriptionKey
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.KeyStatusActive, now).
		Find(&out).Error
	return out, translate(err)
}
