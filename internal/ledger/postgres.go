package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/uow"
)

// PostgresStore keeps one row per wallet account and one row per ledger entry.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateAccount guarantees an account row exists for the wallet.
func (s *PostgresStore) CreateAccount(ctx context.Context, walletID string) error {
	_, err := uow.Conn(ctx, s.db).Exec(ctx, `INSERT INTO wallet_accounts (wallet_id, balance, created_at, updated_at)
        VALUES ($1, 0, now(), now()) ON CONFLICT (wallet_id) DO NOTHING`, walletID)
	return errs.Store("create account", err)
}

// GetBalance reads the account balance, locking the row when called inside a
// transaction.
func (s *PostgresStore) GetBalance(ctx context.Context, walletID string) (int64, error) {
	query := `SELECT balance FROM wallet_accounts WHERE wallet_id = $1`
	if uow.InTx(ctx) {
		query += ` FOR UPDATE`
	}
	var balance int64
	if err := uow.Conn(ctx, s.db).QueryRow(ctx, query, walletID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, errs.Store("get balance", err)
	}
	return balance, nil
}

// SetBalance overwrites the stored balance.
func (s *PostgresStore) SetBalance(ctx context.Context, walletID string, balance int64) error {
	cmd, err := uow.Conn(ctx, s.db).Exec(ctx, `UPDATE wallet_accounts SET balance = $1, updated_at = now() WHERE wallet_id = $2`, balance, walletID)
	if err != nil {
		return errs.Store("set balance", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AppendEntry inserts an entry; ordering comes from the entry sequence column.
func (s *PostgresStore) AppendEntry(ctx context.Context, walletID string, entry Entry) error {
	_, err := uow.Conn(ctx, s.db).Exec(ctx, `INSERT INTO ledger_entries
        (id, wallet_id, transfer_id, amount, entry_type, balance_after, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, walletID, entry.TransferID, entry.Amount, entry.Type, entry.BalanceAfter, entry.Description, entry.CreatedAt.UTC())
	return errs.Store("append entry", err)
}

// History returns the newest entries first.
func (s *PostgresStore) History(ctx context.Context, walletID string, limit int) ([]Entry, error) {
	if err := s.ensureAccount(ctx, walletID); err != nil {
		return nil, err
	}
	rows, err := uow.Conn(ctx, s.db).Query(ctx, `SELECT id, wallet_id, transfer_id, amount, entry_type, balance_after, description, created_at
        FROM ledger_entries WHERE wallet_id = $1 ORDER BY seq DESC LIMIT $2`, walletID, ClampLimit(limit))
	if err != nil {
		return nil, errs.Store("query history", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt time.Time
		)
		if err := rows.Scan(&e.ID, &e.WalletID, &e.TransferID, &e.Amount, &e.Type, &e.BalanceAfter, &e.Description, &createdAt); err != nil {
			return nil, errs.Store("scan entry", err)
		}
		e.CreatedAt = createdAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("iterate history", err)
	}
	return out, nil
}

// CountEntries returns the number of entries recorded for the wallet.
func (s *PostgresStore) CountEntries(ctx context.Context, walletID string) (int, error) {
	if err := s.ensureAccount(ctx, walletID); err != nil {
		return 0, err
	}
	var n int
	if err := uow.Conn(ctx, s.db).QueryRow(ctx, `SELECT count(*) FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&n); err != nil {
		return 0, errs.Store("count entries", err)
	}
	return n, nil
}

func (s *PostgresStore) ensureAccount(ctx context.Context, walletID string) error {
	var exists bool
	if err := uow.Conn(ctx, s.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallet_accounts WHERE wallet_id = $1)`, walletID).Scan(&exists); err != nil {
		return errs.Store("lookup account", err)
	}
	if !exists {
		return ErrAccountNotFound
	}
	return nil
}
