package requests

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/uow"
)

const pgUniqueViolation = "23505"

const selectColumns = `SELECT request_id, wallet_id, recipient_username, sender_wallet_id, sender_username,
        amount, description, status, created_at, updated_at, expires_at FROM payment_requests`

// PostgresStore stores each request as its own row keyed by request id and
// indexed by (wallet_id, status).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed request store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert stores a new request.
func (s *PostgresStore) Insert(ctx context.Context, req Request) error {
	_, err := uow.Conn(ctx, s.db).Exec(ctx, `INSERT INTO payment_requests
        (request_id, wallet_id, recipient_username, sender_wallet_id, sender_username, amount, description, status, created_at, updated_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.RecipientID, req.RecipientUsername, req.SenderWalletID, req.SenderUsername,
		req.Amount, req.Description, string(req.Status), req.CreatedAt.UTC(), req.UpdatedAt.UTC(), nullableTime(req.ExpiresAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return errs.Store("insert request", err)
	}
	return nil
}

// Find looks a request up by id, scoped to walletID when it is non-empty.
func (s *PostgresStore) Find(ctx context.Context, requestID, walletID string) (Request, error) {
	if strings.TrimSpace(requestID) == "" {
		return Request{}, ErrNotFound
	}
	var row pgx.Row
	if strings.TrimSpace(walletID) != "" {
		row = uow.Conn(ctx, s.db).QueryRow(ctx, selectColumns+` WHERE wallet_id = $1 AND request_id = $2`, walletID, requestID)
	} else {
		row = uow.Conn(ctx, s.db).QueryRow(ctx, selectColumns+` WHERE request_id = $1`, requestID)
	}
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, errs.Store("find request", err)
	}
	return r, nil
}

// List returns the payee's requests newest first.
func (s *PostgresStore) List(ctx context.Context, walletID string, filter Filter) ([]Request, error) {
	query := selectColumns + ` WHERE wallet_id = $1`
	args := []any{walletID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $2`
	}
	if !filter.Date.IsZero() {
		y, m, d := filter.Date.UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		args = append(args, day, day.AddDate(0, 0, 1))
		n := len(args)
		query += ` AND created_at >= $` + strconv.Itoa(n-1) + ` AND created_at < $` + strconv.Itoa(n)
	}
	query += ` ORDER BY seq DESC`

	rows, err := uow.Conn(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Store("list requests", err)
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, errs.Store("scan request", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store("iterate requests", err)
	}
	return out, nil
}

// Transition moves a request from one status to another when it is still in
// the expected status. Sender fields are only overwritten when provided.
func (s *PostgresStore) Transition(ctx context.Context, walletID, requestID string, from, to Status, sender Party, at time.Time) (bool, error) {
	cmd, err := uow.Conn(ctx, s.db).Exec(ctx, `UPDATE payment_requests
        SET status = $1,
            updated_at = $2,
            sender_wallet_id = COALESCE(NULLIF($3, ''), sender_wallet_id),
            sender_username = COALESCE(NULLIF($4, ''), sender_username)
        WHERE wallet_id = $5 AND request_id = $6 AND status = $7`,
		string(to), at.UTC(), sender.WalletID, sender.Username, walletID, requestID, string(from))
	if err != nil {
		return false, errs.Store("transition request", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// Archive deletes a resolved request from the payee's list.
func (s *PostgresStore) Archive(ctx context.Context, walletID, requestID string) error {
	cmd, err := uow.Conn(ctx, s.db).Exec(ctx, `DELETE FROM payment_requests
        WHERE wallet_id = $1 AND request_id = $2 AND status <> $3`, walletID, requestID, string(StatusPending))
	if err != nil {
		return errs.Store("archive request", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	// Nothing deleted: either unknown or still pending.
	if _, err := s.Find(ctx, requestID, walletID); err != nil {
		return err
	}
	return ErrStillPending
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		r         Request
		status    string
		expiresAt *time.Time
	)
	if err := row.Scan(&r.ID, &r.RecipientID, &r.RecipientUsername, &r.SenderWalletID, &r.SenderUsername,
		&r.Amount, &r.Description, &status, &r.CreatedAt, &r.UpdatedAt, &expiresAt); err != nil {
		return Request{}, err
	}
	r.Status = Status(status)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	if expiresAt != nil {
		r.ExpiresAt = expiresAt.UTC()
	}
	return r, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
