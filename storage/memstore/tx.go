package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wisdomAdida/edmerge/models"
	"github.com/wisdomAdida/edmerge/storage"
)

func (s *Store) earnerMutex(id uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.earners[id]
	if !ok {
		m = &sync.Mutex{}
		s.earners[id] = m
	}
	return m
}

// WithEarnerLock serialises fn per earner. Writes go straight to the store and
// are undone in reverse order if fn fails.
func (s *Store) WithEarnerLock(ctx context.Context, earnerID uuid.UUID, fn func(tx storage.Storage) error) error {
	m := s.earnerMutex(earnerID)
	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txStore{Store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// txStore journals the writes made through it.
type txStore struct {
	*Store
	undo []func()
}

func (t *txStore) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *txStore) WithEarnerLock(ctx context.Context, _ uuid.UUID, fn func(tx storage.Storage) error) error {
	return fn(t)
}

func (t *txStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	if err := t.Store.CreatePayment(ctx, p); err != nil {
		return err
	}
	id := p.ID
	t.undo = append(t.undo, func() { delete(t.payments, id) })
	return nil
}

func (t *txStore) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error {
	t.mu.RLock()
	prev, ok := t.payments[id]
	t.mu.RUnlock()
	if err := t.Store.UpdatePaymentStatus(ctx, id, status); err != nil {
		return err
	}
	if ok {
		t.undo = append(t.undo, func() { t.payments[id] = prev })
	}
	return nil
}

func (t *txStore) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	if err := t.Store.CreateWithdrawal(ctx, w); err != nil {
		return err
	}
	id := w.ID
	t.undo = append(t.undo, func() { delete(t.withdrawals, id) })
	return nil
}

func (t *txStore) UpdateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	t.mu.RLock()
	prev, ok := t.withdrawals[w.ID]
	t.mu.RUnlock()
	if err := t.Store.UpdateWithdrawal(ctx, w); err != nil {
		return err
	}
	if ok {
		t.undo = append(t.undo, func() { t.withdrawals[prev.ID] = prev })
	}
	return nil
}

func (t *txStore) CreateResearchPurchase(ctx context.Context, p *models.ResearchPurchase) error {
	if err := t.Store.CreateResearchPurchase(ctx, p); err != nil {
		return err
	}
	id := p.ID
	t.undo = append(t.undo, func() { delete(t.purchases, id) })
	return nil
}

func (t *txStore) CreateMentorSession(ctx context.Context, ms *models.MentorSession) error {
	if err := t.Store.CreateMentorSession(ctx, ms); err != nil {
		return err
	}
	id := ms.ID
	t.undo = append(t.undo, func() { delete(t.sessions, id) })
	return nil
}

func (t *txStore) UpdateMentorSession(ctx context.Context, ms *models.MentorSession) error {
	t.mu.RLock()
	prev, ok := t.sessions[ms.ID]
	t.mu.RUnlock()
	if err := t.Store.UpdateMentorSession(ctx, ms); err != nil {
		return err
	}
	if ok {
		t.undo = append(t.undo, func() { t.sessions[prev.ID] = prev })
	}
	return nil
}
