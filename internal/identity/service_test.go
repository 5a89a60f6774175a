package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/ledger"
	"github.com/congo-pay/qrwallet/internal/uow"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	accounts := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), accounts, uow.NewMemory(), nil)
	svc.cost = bcrypt.MinCost
	return svc, accounts
}

func validRegistration() Registration {
	return Registration{
		Phone:    "+237650000000",
		Username: "Alice_W",
		Email:    "Alice@Example.com",
		FullName: "Alice Wonder",
		Password: "Secr3t!pass",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, accounts := newTestService(t)
	ctx := context.Background()

	user, outcome, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	require.Equal(t, Registered, outcome)
	assert.Equal(t, "alice_w", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	balance, err := accounts.GetBalance(ctx, user.WalletID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	authed, err := svc.Authenticate(ctx, "ALICE_W", "Secr3t!pass")
	require.NoError(t, err)
	assert.Equal(t, user.WalletID, authed.WalletID)

	_, err = svc.Authenticate(ctx, "alice_w", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "Secr3t!pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Registration)
		want   Outcome
	}{
		{"email", func(r *Registration) { r.Username = "other_user"; r.Phone = "+237650000001" }, DuplicateEmail},
		{"username", func(r *Registration) { r.Email = "other@example.com"; r.Phone = "+237650000001" }, DuplicateUsername},
		{"phone", func(r *Registration) { r.Email = "other@example.com"; r.Username = "other_user" }, DuplicatePhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := validRegistration()
			tc.mutate(&reg)
			user, outcome, err := svc.Register(ctx, reg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome)
			assert.Empty(t, user.WalletID)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]struct {
		mutate func(*Registration)
		reason string
	}{
		"short phone":    {func(r *Registration) { r.Phone = "123" }, "phone"},
		"short username": {func(r *Registration) { r.Username = "bob" }, "username"},
		"bad email":      {func(r *Registration) { r.Email = "not-an-email" }, "email"},
		"short password": {func(r *Registration) { r.Password = "Aa1!" }, "length"},
		"no uppercase":   {func(r *Registration) { r.Password = "secr3t!pass" }, "uppercase"},
		"no digit":       {func(r *Registration) { r.Password = "Secret!pass" }, "digit"},
		"no special":     {func(r *Registration) { r.Password = "Secr3tpass" }, "special"},
		"no lowercase":   {func(r *Registration) { r.Password = "SECR3T!PASS" }, "lowercase"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reg := validRegistration()
			tc.mutate(&reg)
			_, _, err := svc.Register(ctx, reg)
			e, ok := errs.As(err)
			require.True(t, ok, "expected taxonomy error, got %v", err)
			assert.Equal(t, errs.KindValidation, e.Kind)
			assert.Equal(t, tc.reason, e.Reason)
		})
	}
}

func TestResolveCaller(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user, _, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	caller, err := svc.Resolve(ctx, user.WalletID)
	require.NoError(t, err)
	assert.Equal(t, user.WalletID, caller.WalletID)
	assert.Equal(t, "alice wonder", caller.DisplayName)
	assert.Zero(t, caller.Balance)

	_, err = svc.Resolve(ctx, "missing")
	assert.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
}
