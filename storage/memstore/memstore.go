// Package memstore is an in-process storage.Storage used by tests and by the
// API when STORAGE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/storage"
)

type Store struct {
	mu sync.RWMutex

	users       map[uuid.UUID]models.User
	courses     map[uuid.UUID]models.Course
	payments    map[uuid.UUID]models.Payment
	withdrawals map[uuid.UUID]models.Withdrawal
	projects    map[uuid.UUID]models.ResearchProject
	purchases   map[uuid.UUID]models.ResearchPurchase
	mentorships map[uuid.UUID]models.Mentorship
	sessions    map[uuid.UUID]models.MentorSession
	plans       map[uuid.UUID]models.SubscriptionPlan
	subs        map[uuid.UUID]models.Subscription
	keys        map[uuid.UUID]models.SubscriptionKey

	lockMu  sync.Mutex
	earners map[uuid.UUID]*sync.Mutex

	now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]models.User),
		courses:     make(map[uuid.UUID]models.Course),
		payments:    make(map[uuid.UUID]models.Payment),
		withdrawals: make(map[uuid.UUID]models.Withdrawal),
		projects:    make(map[uuid.UUID]models.ResearchProject),
		purchases:   make(map[uuid.UUID]models.ResearchPurchase),
		mentorships: make(map[uuid.UUID]models.Mentorship),
		sessions:    make(map[uuid.UUID]models.MentorSession),
		plans:       make(map[uuid.UUID]models.SubscriptionPlan),
		subs:        make(map[uuid.UUID]models.Subscription),
		keys:        make(map[uuid.UUID]models.SubscriptionKey),
		earners:     make(map[uuid.UUID]*sync.Mutex),
		now:         time.Now,
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Seeding helpers for records this service only reads.

func (s *Store) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	u.IsActive = true
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	return u
}

func (s *Store) AddCourse(c models.Course) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&c.ID)
	if c.Currency == "" {
		c.Currency = "USD"
	}
	s.courses[c.ID] = c
	return c
}

func (s *Store) AddResearchProject(p models.ResearchProject) models.ResearchProject {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&p.ID)
	s.projects[p.ID] = p
	return p
}

func (s *Store) AddMentorship(m models.Mentorship) models.Mentorship {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&m.ID)
	if m.Status == "" {
		m.Status = models.MentorshipStatusActive
	}
	s.mentorships[m.ID] = m
	return m
}

func (s *Store) AddSubscriptionPlan(p models.SubscriptionPlan) models.SubscriptionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&p.ID)
	if p.Currency == "" {
		p.Currency = "USD"
	}
	s.plans[p.ID] = p
	return p
}

// Users

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListUserIDsByRole(_ context.Context, role string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for id, u := range s.users {
		if u.Role == role && u.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) GetCourse(_ context.Context, id uuid.UUID) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

// Payments

func (s *Store) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.TransactionID == p.TransactionID {
			return storage.ErrDuplicate
		}
	}
	ensureID(&p.ID)
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) GetPaymentByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = s.now()
	s.payments[id] = p
	return nil
}

func (s *Store) ListPaymentsByEarner(_ context.Context, earnerID uuid.UUID) ([]models.Payment, error) {
	return s.filterPayments(func(p models.Payment) bool { return p.EarnerID == earnerID }), nil
}

func (s *Store) ListCompletedPaymentsByEarner(_ context.Context, earnerID uuid.UUID) ([]models.Payment, error) {
	return s.filterPayments(func(p models.Payment) bool {
		return p.EarnerID == earnerID && p.Status == models.PaymentStatusCompleted
	}), nil
}

func (s *Store) filterPayments(keep func(models.Payment) bool) []models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Payment
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out
}

// Withdrawals

func (s *Store) CreateWithdrawal(_ context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.withdrawals {
		if existing.TransactionID == w.TransactionID {
			return storage.ErrDuplicate
		}
	}
	ensureID(&w.ID)
	w.CreatedAt = s.now()
	w.UpdatedAt = w.CreatedAt
	s.withdrawals[w.ID] = *w
	return nil
}

func (s *Store) GetWithdrawal(_ context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

func (s *Store) GetWithdrawalByTransactionID(_ context.Context, transactionID string) (*models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.withdrawals {
		if w.TransactionID == transactionID {
			return &w, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListWithdrawalsByEarner(_ context.Context, earnerID uuid.UUID) ([]models.Withdrawal, error) {
	return s.filterWithdrawals(func(w models.Withdrawal) bool { return w.TutorID == earnerID }), nil
}

func (s *Store) ListWithdrawalsByStatus(_ context.Context, status string) ([]models.Withdrawal, error) {
	return s.filterWithdrawals(func(w models.Withdrawal) bool { return status == "" || w.Status == status }), nil
}

func (s *Store) ListStalePendingWithdrawals(_ context.Context, requestedBefore time.Time) ([]models.Withdrawal, error) {
	return s.filterWithdrawals(func(w models.Withdrawal) bool {
		return w.Status == models.WithdrawalStatusPending && w.RequestDate.Before(requestedBefore)
	}), nil
}

func (s *Store) filterWithdrawals(keep func(models.Withdrawal) bool) []models.Withdrawal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out
}

func (s *Store) UpdateWithdrawal(_ context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.withdrawals[w.ID]; !ok {
		return storage.ErrNotFound
	}
	w.UpdatedAt = s.now()
	s.withdrawals[w.ID] = *w
	return nil
}

// Research

func (s *Store) GetResearchProject(_ context.Context, id uuid.UUID) (*models.ResearchProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateResearchPurchase(_ context.Context, p *models.ResearchPurchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.purchases {
		if existing.TransactionID == p.TransactionID {
			return storage.ErrDuplicate
		}
	}
	ensureID(&p.ID)
	p.CreatedAt = s.now()
	s.purchases[p.ID] = *p
	return nil
}

func (s *Store) GetResearchPurchaseByTransactionID(_ context.Context, transactionID string) (*models.ResearchPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.purchases {
		if p.TransactionID == transactionID {
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListCompletedResearchPurchasesByResearcher(_ context.Context, researcherID uuid.UUID) ([]models.ResearchPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ResearchPurchase
	for _, p := range s.purchases {
		if p.ResearcherID == researcherID && p.Status == models.PaymentStatusCompleted {
			out = append(out, p)
		}
	}
	return out, nil
}

// Mentorships

func (s *Store) GetMentorship(_ context.Context, id uuid.UUID) (*models.Mentorship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mentorships[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

func (s *Store) CreateMentorSession(_ context.Context, ms *models.MentorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&ms.ID)
	ms.CreatedAt = s.now()
	ms.UpdatedAt = ms.CreatedAt
	s.sessions[ms.ID] = *ms
	return nil
}

func (s *Store) GetMentorSession(_ context.Context, id uuid.UUID) (*models.MentorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &ms, nil
}

func (s *Store) UpdateMentorSession(_ context.Context, ms *models.MentorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[ms.ID]; !ok {
		return storage.ErrNotFound
	}
	ms.UpdatedAt = s.now()
	s.sessions[ms.ID] = *ms
	return nil
}

func (s *Store) ListSessionsByMentor(_ context.Context, mentorID uuid.UUID) ([]models.MentorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MentorSession
	for _, ms := range s.sessions {
		if ms.MentorID == mentorID {
			out = append(out, ms)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

// Subscriptions

func (s *Store) GetSubscriptionPlan(_ context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs {
		if existing.TransactionID == sub.TransactionID {
			return storage.ErrDuplicate
		}
	}
	ensureID(&sub.ID)
	sub.CreatedAt = s.now()
	sub.UpdatedAt = sub.CreatedAt
	s.subs[sub.ID] = *sub
	return nil
}

func (s *Store) GetSubscriptionByTransactionID(_ context.Context, transactionID string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.TransactionID == transactionID {
			return &sub, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateSubscription(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return storage.ErrNotFound
	}
	sub.UpdatedAt = s.now()
	s.subs[sub.ID] = *sub
	return nil
}

func (s *Store) ListExpiredSubscriptions(_ context.Context, now time.Time) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.Status == models.SubscriptionStatusActive && sub.EndDate != nil && sub.EndDate.Before(now) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) CreateSubscriptionKey(_ context.Context, k *models.SubscriptionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keys {
		if existing.Code == k.Code {
			return storage.ErrDuplicate
		}
	}
	ensureID(&k.ID)
	k.CreatedAt = s.now()
	k.UpdatedAt = k.CreatedAt
	s.keys[k.ID] = *k
	return nil
}

func (s *Store) GetSubscriptionKey(_ context.Context, id uuid.UUID) (*models.SubscriptionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &k, nil
}

func (s *Store) SubscriptionKeyCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) TransitionSubscriptionKey(_ context.Context, id uuid.UUID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return storage.ErrNotFound
	}
	if k.Status != from {
		return storage.ErrStaleStatus
	}
	k.Status = to
	k.UpdatedAt = s.now()
	s.keys[id] = k
	return nil
}

func (s *Store) ListExpiredActiveKeys(_ context.Context, now time.Time) ([]models.SubscriptionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SubscriptionKey
	for _, k := range s.keys {
		if k.Status == models.KeyStatusActive && k.ExpiresAt.Before(now) {
			out = append(out, k)
		}
	}
	return out, nil
}
