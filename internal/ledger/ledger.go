package ledger

import (
	"context"
	"time"

	"github.com/congo-pay/qrwallet/internal/errs"
)

var (
	// ErrAccountNotFound occurs when no wallet account exists for the id.
	ErrAccountNotFound = errs.NotFound("account_not_found", "Wallet account not found")

	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errs.Precondition("insufficient_funds", "Insufficient funds in your wallet")

	// ErrSelfTransfer rejects a transfer whose source and destination match.
	ErrSelfTransfer = errs.Precondition("self_transfer", "Cannot transfer to the same wallet")

	// ErrNonPositiveAmount rejects postings of zero or negative value.
	ErrNonPositiveAmount = errs.Validation("amount", "Amount must be greater than zero.")
)

const (
	// EntryCredit marks a balance increase.
	EntryCredit = "credit"
	// EntryDebit marks a balance decrease.
	EntryDebit = "debit"

	// DefaultHistoryLimit applies when no usable limit is supplied.
	DefaultHistoryLimit = 100
	// MaxHistoryLimit is the largest page History returns.
	MaxHistoryLimit = 1000
)

// Entry is one immutable balance-affecting event of a wallet. Amount is
// signed: negative for debits, positive for credits.
type Entry struct {
	ID           string
	WalletID     string
	TransferID   string
	Amount       int64
	Type         string
	BalanceAfter int64
	Description  string
	CreatedAt    time.Time
}

// Store owns wallet balances and their transaction history.
//
// GetBalance called inside a uow scope locks the account until the scope
// ends, so a balance read there is contemporaneous with the writes that
// follow it.
type Store interface {
	CreateAccount(ctx context.Context, walletID string) error
	GetBalance(ctx context.Context, walletID string) (int64, error)
	SetBalance(ctx context.Context, walletID string, balance int64) error
	AppendEntry(ctx context.Context, walletID string, entry Entry) error
	History(ctx context.Context, walletID string, limit int) ([]Entry, error)
	CountEntries(ctx context.Context, walletID string) (int, error)
}

// ClampLimit maps a requested history size onto [1, MaxHistoryLimit]. Zero,
// negative and oversized values fall back to DefaultHistoryLimit.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}
