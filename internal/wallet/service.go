package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/amount"
	"github.com/congo-pay/qrwallet/internal/identity"
	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/notification"
	"github.com/congo-pay/qrwallet/internal/transfer"
)

// Owners looks up the user behind a wallet.
type Owners interface {
	Lookup(ctx context.Context, walletID string) (identity.User, error)
}

// Service exposes the caller's wallet: balance, funding, direct transfers
// and history. Every balance change goes through the transfer engine.
type Service struct {
	accounts ledger.Store
	engine   *transfer.Engine
	owners   Owners
	notifier notification.Notifier
	logger   *zap.Logger
}

// NewService builds a wallet service instance.
func NewService(accounts ledger.Store, engine *transfer.Engine, owners Owners, notifier notification.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{accounts: accounts, engine: engine, owners: owners, notifier: notifier, logger: logger}
}

// Balance returns the ledger balance for the caller's wallet.
func (s *Service) Balance(ctx context.Context, caller identity.Caller) (Balance, error) {
	units, err := s.accounts.GetBalance(ctx, caller.WalletID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: caller.WalletID, Amount: units, AsOf: time.Now().UTC()}, nil
}

// Deposit credits the caller with funds entering the system.
func (s *Service) Deposit(ctx context.Context, caller identity.Caller, raw string) (transfer.Posting, error) {
	value, err := amount.Parse(raw)
	if err != nil {
		return transfer.Posting{}, err
	}
	return s.engine.Deposit(ctx, caller.WalletID, value, "deposit")
}

// Withdraw debits the caller with funds leaving the system.
func (s *Service) Withdraw(ctx context.Context, caller identity.Caller, raw string) (transfer.Posting, error) {
	value, err := amount.Parse(raw)
	if err != nil {
		return transfer.Posting{}, err
	}
	return s.engine.Withdraw(ctx, caller.WalletID, value, "withdrawal")
}

// Send moves funds from the caller straight to another wallet.
func (s *Service) Send(ctx context.Context, caller identity.Caller, toWalletID, raw string) (transfer.Result, error) {
	toWalletID = strings.TrimSpace(toWalletID)
	if toWalletID == "" {
		return transfer.Result{}, ErrMissingRecipient
	}
	value, err := amount.Parse(raw)
	if err != nil {
		return transfer.Result{}, err
	}
	if _, err := s.accounts.GetBalance(ctx, toWalletID); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return transfer.Result{}, ErrRecipientNotFound
		}
		return transfer.Result{}, err
	}

	res, err := s.engine.Transfer(ctx, transfer.Input{
		From:        caller.WalletID,
		To:          toWalletID,
		Amount:      value,
		Description: "transfer from " + caller.Username,
	})
	if err != nil {
		return transfer.Result{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: toWalletID,
			Body:        fmt.Sprintf("You received %d from %s", value, caller.Username),
		}); err != nil {
			s.logger.Warn("notification failed", zap.Error(err))
		}
	}
	return res, nil
}

// History returns the caller's entries, newest first. See ledger.ClampLimit
// for how limit is bounded.
func (s *Service) History(ctx context.Context, caller identity.Caller, limit int) ([]ledger.Entry, error) {
	return s.accounts.History(ctx, caller.WalletID, limit)
}

// Profile combines the owner record, balance and recent activity.
func (s *Service) Profile(ctx context.Context, caller identity.Caller) (Profile, error) {
	user, err := s.owners.Lookup(ctx, caller.WalletID)
	if err != nil {
		return Profile{}, err
	}
	balance, err := s.accounts.GetBalance(ctx, caller.WalletID)
	if err != nil {
		return Profile{}, err
	}
	count, err := s.accounts.CountEntries(ctx, caller.WalletID)
	if err != nil {
		return Profile{}, err
	}
	recent, err := s.accounts.History(ctx, caller.WalletID, recentEntries)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Username:          user.Username,
		Email:             user.Email,
		FullName:          user.FullName,
		Phone:             user.Phone,
		WalletID:          user.WalletID,
		Balance:           balance,
		TransactionsCount: count,
		Recent:            recent,
	}, nil
}
