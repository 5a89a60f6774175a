package requests

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/congo-pay/qrwallet/internal/uow"
)

type inMemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]*Request // payee wallet id -> newest first
	byID  map[string]string     // request id -> payee wallet id
}

// NewInMemory builds an in-memory request store for tests and development.
func NewInMemory() Store {
	return &inMemoryStore{
		lists: make(map[string][]*Request),
		byID:  make(map[string]string),
	}
}

func (s *inMemoryStore) Insert(ctx context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[req.ID]; exists {
		return ErrDuplicate
	}
	stored := req
	s.lists[req.RecipientID] = append([]*Request{&stored}, s.lists[req.RecipientID]...)
	s.byID[req.ID] = req.RecipientID
	uow.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.remove(req.RecipientID, req.ID)
	})
	return nil
}

func (s *inMemoryStore) Find(_ context.Context, requestID, walletID string) (Request, error) {
	if strings.TrimSpace(requestID) == "" {
		return Request{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.TrimSpace(walletID) == "" {
		var ok bool
		if walletID, ok = s.byID[requestID]; !ok {
			return Request{}, ErrNotFound
		}
	}
	r := s.lookup(walletID, requestID)
	if r == nil {
		return Request{}, ErrNotFound
	}
	return *r, nil
}

func (s *inMemoryStore) List(_ context.Context, walletID string, filter Filter) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Request{}
	for _, r := range s.lists[walletID] {
		if filter.match(*r) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *inMemoryStore) Transition(ctx context.Context, walletID, requestID string, from, to Status, sender Party, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(walletID, requestID)
	if r == nil || r.Status != from {
		return false, nil
	}
	prev := *r
	r.Status = to
	r.UpdatedAt = at
	if sender.WalletID != "" {
		r.SenderWalletID = sender.WalletID
	}
	if sender.Username != "" {
		r.SenderUsername = sender.Username
	}
	uow.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*r = prev
	})
	return true, nil
}

func (s *inMemoryStore) Archive(_ context.Context, walletID, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.lookup(walletID, requestID)
	if r == nil {
		return ErrNotFound
	}
	if !r.Status.Terminal() {
		return ErrStillPending
	}
	s.remove(walletID, requestID)
	return nil
}

func (s *inMemoryStore) lookup(walletID, requestID string) *Request {
	for _, r := range s.lists[walletID] {
		if r.ID == requestID {
			return r
		}
	}
	return nil
}

func (s *inMemoryStore) remove(walletID, requestID string) {
	list := s.lists[walletID]
	for i, r := range list {
		if r.ID == requestID {
			s.lists[walletID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	delete(s.byID, requestID)
}
