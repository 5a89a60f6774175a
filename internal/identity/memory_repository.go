package identity

import (
	"context"
	"sync"

	"github.com/congo-pay/qrwallet/internal/uow"
)

type memoryRepository struct {
	mu         sync.RWMutex
	byUsername map[string]User
	emails     map[string]struct{}
	phones     map[string]struct{}
	byWallet   map[string]string
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byUsername: make(map[string]User),
		emails:     make(map[string]struct{}),
		phones:     make(map[string]struct{}),
		byWallet:   make(map[string]string),
	}
}

func (r *memoryRepository) Create(ctx context.Context, user User) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.emails[user.Email]; exists {
		return DuplicateEmail, nil
	}
	if _, exists := r.byUsername[user.Username]; exists {
		return DuplicateUsername, nil
	}
	if _, exists := r.phones[user.Phone]; exists {
		return DuplicatePhone, nil
	}
	r.byUsername[user.Username] = user
	r.emails[user.Email] = struct{}{}
	r.phones[user.Phone] = struct{}{}
	r.byWallet[user.WalletID] = user.Username
	uow.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.byUsername, user.Username)
		delete(r.emails, user.Email)
		delete(r.phones, user.Phone)
		delete(r.byWallet, user.WalletID)
	})
	return Registered, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byUsername[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByWalletID(_ context.Context, walletID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.byWallet[walletID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byUsername[username], nil
}
