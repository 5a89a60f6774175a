// Package transfer moves funds between wallet balances. Every balance change
// happens inside one uow scope together with its ledger entries, so an account
// is never left debited without the paired credit.
package transfer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/uow"
)

// Input describes a wallet-to-wallet transfer.
type Input struct {
	From        string
	To          string
	Amount      int64
	Description string
}

// Result captures both post-transfer balances and the shared transfer id.
type Result struct {
	TransferID  string
	From        string
	To          string
	Amount      int64
	FromBalance int64
	ToBalance   int64
	CompletedAt time.Time
}

// Posting is the outcome of a single-leg deposit or withdrawal.
type Posting struct {
	TransferID  string
	WalletID    string
	Amount      int64
	Balance     int64
	CompletedAt time.Time
}

// Engine is stateless; it only coordinates the ledger store inside a scope.
type Engine struct {
	store  ledger.Store
	uow    uow.UnitOfWork
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine builds a transfer engine over the ledger store.
func NewEngine(store ledger.Store, unit uow.UnitOfWork, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		uow:    unit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Transfer debits in.From and credits in.To by in.Amount atomically.
func (e *Engine) Transfer(ctx context.Context, in Input) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ledger.ErrNonPositiveAmount
	}
	if in.From == in.To {
		return Result{}, ledger.ErrSelfTransfer
	}

	res := Result{TransferID: e.newID(), From: in.From, To: in.To, Amount: in.Amount}
	err := e.uow.Do(ctx, func(ctx context.Context) error {
		// Lock in a stable order so opposite transfers cannot deadlock.
		ids := []string{in.From, in.To}
		sort.Strings(ids)
		balances := make(map[string]int64, 2)
		for _, id := range ids {
			b, err := e.store.GetBalance(ctx, id)
			if err != nil {
				return err
			}
			balances[id] = b
		}

		if balances[in.From] < in.Amount {
			return ledger.ErrInsufficientFunds
		}

		res.FromBalance = balances[in.From] - in.Amount
		res.ToBalance = balances[in.To] + in.Amount
		res.CompletedAt = e.now()

		if err := e.store.SetBalance(ctx, in.From, res.FromBalance); err != nil {
			return err
		}
		if err := e.store.SetBalance(ctx, in.To, res.ToBalance); err != nil {
			return err
		}
		if err := e.store.AppendEntry(ctx, in.From, ledger.Entry{
			ID:           e.newID(),
			TransferID:   res.TransferID,
			Amount:       -in.Amount,
			Type:         ledger.EntryDebit,
			BalanceAfter: res.FromBalance,
			Description:  in.Description,
			CreatedAt:    res.CompletedAt,
		}); err != nil {
			return err
		}
		return e.store.AppendEntry(ctx, in.To, ledger.Entry{
			ID:           e.newID(),
			TransferID:   res.TransferID,
			Amount:       in.Amount,
			Type:         ledger.EntryCredit,
			BalanceAfter: res.ToBalance,
			Description:  in.Description,
			CreatedAt:    res.CompletedAt,
		})
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("transfer completed",
		zap.String("transfer_id", res.TransferID),
		zap.String("from_wallet_id", in.From),
		zap.String("to_wallet_id", in.To),
		zap.Int64("amount", in.Amount),
	)
	return res, nil
}

// Deposit credits walletID with funds entering the system.
func (e *Engine) Deposit(ctx context.Context, walletID string, amount int64, description string) (Posting, error) {
	return e.post(ctx, walletID, amount, ledger.EntryCredit, description)
}

// Withdraw debits walletID with funds leaving the system.
func (e *Engine) Withdraw(ctx context.Context, walletID string, amount int64, description string) (Posting, error) {
	return e.post(ctx, walletID, amount, ledger.EntryDebit, description)
}

func (e *Engine) post(ctx context.Context, walletID string, amount int64, kind, description string) (Posting, error) {
	if amount <= 0 {
		return Posting{}, ledger.ErrNonPositiveAmount
	}
	signed := amount
	if kind == ledger.EntryDebit {
		signed = -amount
	}

	p := Posting{TransferID: e.newID(), WalletID: walletID, Amount: signed}
	err := e.uow.Do(ctx, func(ctx context.Context) error {
		balance, err := e.store.GetBalance(ctx, walletID)
		if err != nil {
			return err
		}
		if balance+signed < 0 {
			return ledger.ErrInsufficientFunds
		}
		p.Balance = balance + signed
		p.CompletedAt = e.now()
		if err := e.store.SetBalance(ctx, walletID, p.Balance); err != nil {
			return err
		}
		return e.store.AppendEntry(ctx, walletID, ledger.Entry{
			ID:           e.newID(),
			TransferID:   p.TransferID,
			Amount:       signed,
			Type:         kind,
			BalanceAfter: p.Balance,
			Description:  description,
			CreatedAt:    p.CompletedAt,
		})
	})
	if err != nil {
		return Posting{}, err
	}

	e.logger.Info("posting completed",
		zap.String("transfer_id", p.TransferID),
		zap.String("wallet_id", walletID),
		zap.String("type", kind),
		zap.Int64("amount", amount),
	)
	return p, nil
}
