package ledger

import (
	"context"
	"sync"

	"github.com/congo-pay/qrwallet/internal/uow"
)

type account struct {
	balance int64
	entries []Entry // newest first
}

type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// NewInMemory creates a concurrency-safe in-memory ledger store useful for
// unit tests. Mutations made inside a uow.Memory scope are undone when the
// scope fails.
func NewInMemory() Store {
	return &inMemoryStore{accounts: make(map[string]*account)}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[walletID]; !exists {
		s.accounts[walletID] = &account{}
	}
	return nil
}

func (s *inMemoryStore) GetBalance(_ context.Context, walletID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[walletID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return acc.balance, nil
}

func (s *inMemoryStore) SetBalance(ctx context.Context, walletID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[walletID]
	if !ok {
		return ErrAccountNotFound
	}
	prev := acc.balance
	acc.balance = balance
	uow.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		acc.balance = prev
	})
	return nil
}

func (s *inMemoryStore) AppendEntry(ctx context.Context, walletID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[walletID]
	if !ok {
		return ErrAccountNotFound
	}
	entry.WalletID = walletID
	acc.entries = append([]Entry{entry}, acc.entries...)
	uow.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range acc.entries {
			if e.ID == entry.ID {
				acc.entries = append(acc.entries[:i:i], acc.entries[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *inMemoryStore) History(_ context.Context, walletID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[walletID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	n := ClampLimit(limit)
	if n > len(acc.entries) {
		n = len(acc.entries)
	}
	out := make([]Entry, n)
	copy(out, acc.entries[:n])
	return out, nil
}

func (s *inMemoryStore) CountEntries(_ context.Context, walletID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[walletID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return len(acc.entries), nil
}
