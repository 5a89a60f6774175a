package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/uow"
)

// errNotRegistered aborts the registration scope without surfacing an error.
var errNotRegistered = errors.New("registration not applied")

// Service manages identity lifecycle. Registration opens the user's ledger
// account in the same atomic scope as the user record.
type Service struct {
	repo     Repository
	accounts ledger.Store
	uow      uow.UnitOfWork
	logger   *zap.Logger
	cost     int
	now      func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, accounts ledger.Store, unit uow.UnitOfWork, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		accounts: accounts,
		uow:      unit,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user with a fresh wallet. A uniqueness clash is
// reported through the Outcome with a nil error.
func (s *Service) Register(ctx context.Context, reg Registration) (User, Outcome, error) {
	reg = reg.normalize()
	if err := reg.validate(); err != nil {
		return User{}, Registered, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return User{}, Registered, err
	}

	user := User{
		ID:           uuid.NewString(),
		WalletID:     uuid.NewString(),
		Username:     reg.Username,
		Email:        reg.Email,
		FullName:     reg.FullName,
		Phone:        reg.Phone,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	outcome := Registered
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		if outcome, err = s.repo.Create(ctx, user); err != nil {
			return err
		}
		if outcome != Registered {
			return errNotRegistered
		}
		return s.accounts.CreateAccount(ctx, user.WalletID)
	})
	switch {
	case errors.Is(err, errNotRegistered):
		s.logger.Info("registration rejected", zap.String("username", user.Username), zap.Stringer("outcome", outcome))
		return User{}, outcome, nil
	case err != nil:
		return User{}, Registered, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("wallet_id", user.WalletID))
	return user, Registered, nil
}

// Authenticate verifies a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Resolve turns a wallet id taken from a verified token into the caller
// identity, including the current balance.
func (s *Service) Resolve(ctx context.Context, walletID string) (Caller, error) {
	user, err := s.repo.FindByWalletID(ctx, walletID)
	if errors.Is(err, ErrUserNotFound) {
		return Caller{}, errs.Unauthenticated("invalid_token", "Invalid token")
	}
	if err != nil {
		return Caller{}, err
	}
	balance, err := s.accounts.GetBalance(ctx, walletID)
	if err != nil {
		return Caller{}, err
	}
	return Caller{
		UserID:      user.ID,
		WalletID:    user.WalletID,
		Username:    user.Username,
		DisplayName: user.FullName,
		Balance:     balance,
	}, nil
}

// Lookup returns the owner of a wallet.
func (s *Service) Lookup(ctx context.Context, walletID string) (User, error) {
	return s.repo.FindByWalletID(ctx, walletID)
}
