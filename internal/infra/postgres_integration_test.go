//go:build integration

package infra_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/identity"
	"github.com/congo-pay/qrwallet/internal/infra"
	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/payments"
	"github.com/congo-pay/qrwallet/internal/requests"
	"github.com/congo-pay/qrwallet/internal/transfer"
	"github.com/congo-pay/qrwallet/internal/uow"
)

// setupPostgres starts a disposable PostgreSQL container, applies the
// schema and returns a pool against it.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("qrwallet"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, infra.Migrate(dsn, zap.NewNop()))
	// A second run is a no-op.
	require.NoError(t, infra.Migrate(dsn, zap.NewNop()))

	pool, err := infra.NewPostgresPool(ctx, dsn, infra.PoolOptions{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresStores(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	accounts := ledger.NewPostgresStore(pool)
	unit := uow.NewPostgres(pool)
	engine := transfer.NewEngine(accounts, unit, nil)
	ids := identity.NewService(identity.NewPostgresRepository(pool), accounts, unit, nil)

	register := func(username, phone string) identity.User {
		u, outcome, err := ids.Register(ctx, identity.Registration{
			Phone:    phone,
			Username: username,
			Email:    username + "@example.com",
			FullName: username + " person",
			Password: "Passw0rd!x",
		})
		require.NoError(t, err)
		require.Equal(t, identity.Registered, outcome)
		return u
	}

	t.Run("registration outcomes", func(t *testing.T) {
		register("first_user", "0620000001")
		_, outcome, err := ids.Register(ctx, identity.Registration{
			Phone: "0620000002", Username: "other_user", Email: "first_user@example.com", FullName: "other person", Password: "Passw0rd!x",
		})
		require.NoError(t, err)
		assert.Equal(t, identity.DuplicateEmail, outcome)
		_, outcome, err = ids.Register(ctx, identity.Registration{
			Phone: "0620000001", Username: "third_user", Email: "third@example.com", FullName: "third person", Password: "Passw0rd!x",
		})
		require.NoError(t, err)
		assert.Equal(t, identity.DuplicatePhone, outcome)
	})

	t.Run("concurrent accepts transfer once", func(t *testing.T) {
		payee := register("payee_pg", "0620000010")
		svc := payments.NewService(requests.NewPostgresStore(pool), accounts, engine, unit, payments.Options{BaseURL: "https://pay.example.com"})
		created, err := svc.Create(ctx, identity.Caller{WalletID: payee.WalletID, Username: payee.Username}, payments.CreateInput{Amount: "200"})
		require.NoError(t, err)

		var payers []identity.Caller
		for i, phone := range []string{"0620000011", "0620000012", "0620000013", "0620000014"} {
			u := register("payer_pg"+string(rune('a'+i)), phone)
			_, err := engine.Deposit(ctx, u.WalletID, 500, "seed")
			require.NoError(t, err)
			payers = append(payers, identity.Caller{WalletID: u.WalletID, Username: u.Username})
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for _, p := range payers {
			wg.Add(1)
			go func(p identity.Caller) {
				defer wg.Done()
				_, err := svc.Resolve(ctx, created.RequestID, p, payments.ActionAccept)
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				assert.True(t, errors.Is(err, payments.ErrNotPending), "unexpected error: %v", err)
			}(p)
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		balance, err := accounts.GetBalance(ctx, payee.WalletID)
		require.NoError(t, err)
		assert.Equal(t, int64(200), balance)

		var total int64
		for _, p := range payers {
			b, err := accounts.GetBalance(ctx, p.WalletID)
			require.NoError(t, err)
			total += b
		}
		assert.Equal(t, int64(4*500-200), total)

		view, err := svc.Status(ctx, created.RequestID)
		require.NoError(t, err)
		assert.Equal(t, requests.StatusCompleted, view.Status)
	})

	t.Run("history newest first", func(t *testing.T) {
		u := register("history_pg", "0620000020")
		for i := 0; i < 3; i++ {
			_, err := engine.Deposit(ctx, u.WalletID, 10, "seed")
			require.NoError(t, err)
		}
		entries, err := accounts.History(ctx, u.WalletID, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, int64(30), entries[0].BalanceAfter)
		assert.Equal(t, int64(10), entries[2].BalanceAfter)
	})
}
