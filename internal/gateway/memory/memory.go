// Package memory is the in-process persistence gateway: mutex-guarded
// slices plus a snapshot push subscription. It backs tests and the default
// single-user deployment, the role local browser storage played in the
// original client.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

type Store struct {
	mu          sync.Mutex
	txs         []core.Transaction
	invs        []core.Investment
	subscribers map[int]func(gateway.Snapshot)
	nextSub     int
}

func New() *Store {
	return &Store{subscribers: make(map[int]func(gateway.Snapshot))}
}

// Seed replaces both collections without notifying subscribers; intended
// for test setup.
func (s *Store) Seed(txs []core.Transaction, invs []core.Investment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]core.Transaction(nil), txs...)
	s.invs = append([]core.Investment(nil), invs...)
}

// LoadCollections implements gateway.Loader.
func (s *Store) LoadCollections(_ context.Context) ([]core.Transaction, []core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshotLocked()
	return snap.Transactions, snap.Investments, nil
}

// Subscribe implements gateway.Subscriber. The listener receives the
// current snapshot immediately and again after every mutation.
func (s *Store) Subscribe(fn func(gateway.Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// snapshotLocked copies both collections; callers hold s.mu.
func (s *Store) snapshotLocked() gateway.Snapshot {
	return gateway.Snapshot{
		Transactions: append([]core.Transaction(nil), s.txs...),
		Investments:  append([]core.Investment(nil), s.invs...),
	}
}

// notifyLocked pushes the current snapshot to every subscriber; callers
// hold s.mu. Listeners run synchronously, matching the single-threaded
// cooperative model of the core.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

// CreateTransaction implements gateway.TransactionStore.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	s.notifyLocked()
	return nil
}

// CreateTransactionGroup appends the whole batch under one lock hold, so no
// reader ever observes a partial group.
func (s *Store) CreateTransactionGroup(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, txs...)
	s.notifyLocked()
	return nil
}

// UpdateTransaction implements gateway.TransactionStore.
func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == tx.ID {
			s.txs[i] = tx
			s.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("update transaction %s: %w", tx.ID, gateway.ErrNotFound)
}

// DeleteTransaction implements gateway.TransactionStore.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			s.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("delete transaction %s: %w", id, gateway.ErrNotFound)
}

// DeleteTransactionGroup implements gateway.TransactionStore.
func (s *Store) DeleteTransactionGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.txs[:0]
	removed := 0
	for _, t := range s.txs {
		if t.RecurringGroupID == groupID {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.txs = kept
	if removed == 0 {
		return fmt.Errorf("delete group %s: %w", groupID, gateway.ErrNotFound)
	}
	s.notifyLocked()
	return nil
}

// AdjustTransactionAmount implements gateway.TransactionStore. Only the
// addressed transaction changes; siblings in the same group are untouched.
func (s *Store) AdjustTransactionAmount(_ context.Context, id string, delta core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs[i].Amount = s.txs[i].Amount.Add(delta)
			s.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("adjust transaction %s: %w", id, gateway.ErrNotFound)
}

// SetTransactionStatus implements gateway.TransactionStore.
func (s *Store) SetTransactionStatus(_ context.Context, id string, status core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs[i].Status = status
			s.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("set status of transaction %s: %w", id, gateway.ErrNotFound)
}

// CreateInvestment implements gateway.InvestmentStore.
func (s *Store) CreateInvestment(_ context.Context, inv core.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invs = append(s.invs, inv)
	s.notifyLocked()
	return nil
}

// DeleteInvestment implements gateway.InvestmentStore.
func (s *Store) DeleteInvestment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invs {
		if s.invs[i].ID == id {
			s.invs = append(s.invs[:i], s.invs[i+1:]...)
			s.notifyLocked()
			return nil
		}
	}
	return fmt.Errorf("delete investment %s: %w", id, gateway.ErrNotFound)
}

// ReplaceAll implements gateway.Replacer.
func (s *Store) ReplaceAll(_ context.Context, txs []core.Transaction, invs []core.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]core.Transaction(nil), txs...)
	s.invs = append([]core.Investment(nil), invs...)
	s.notifyLocked()
	return nil
}

var _ gateway.Store = (*Store)(nil)
var _ gateway.Subscriber = (*Store)(nil)
