package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/uow"
)

// Repository persists users. Create reports a duplicate through the Outcome
// rather than an error so callers handle every case.
type Repository interface {
	Create(ctx context.Context, user User) (Outcome, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByWalletID(ctx context.Context, walletID string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, wallet_id, username, email, full_name, phone, password_hash, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) (Outcome, error) {
	_, err := uow.Conn(ctx, r.db).Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.WalletID, user.Username, user.Email, user.FullName, user.Phone, user.PasswordHash, user.CreatedAt.UTC())
	if err == nil {
		return Registered, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return duplicateOutcome(pgErr.ConstraintName), nil
	}
	return Registered, errs.Store("insert user", err)
}

func duplicateOutcome(constraint string) Outcome {
	switch {
	case strings.Contains(constraint, "email"):
		return DuplicateEmail
	case strings.Contains(constraint, "phone"):
		return DuplicatePhone
	default:
		return DuplicateUsername
	}
}

// FindByUsername fetches a user by login name.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByWalletID fetches the owner of a wallet.
func (r *PostgresRepository) FindByWalletID(ctx context.Context, walletID string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_id = $1`, walletID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query, arg string) (User, error) {
	row := uow.Conn(ctx, r.db).QueryRow(ctx, query, arg)
	var (
		createdAt time.Time
		user      User
	)
	err := row.Scan(&user.ID, &user.WalletID, &user.Username, &user.Email, &user.FullName, &user.Phone, &user.PasswordHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, errs.Store("find user", err)
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
