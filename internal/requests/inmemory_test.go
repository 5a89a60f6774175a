package requests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/qrwallet/internal/uow"
)

func newRequest(id, wallet string, status Status, created time.Time) Request {
	return Request{
		ID:                id,
		RecipientID:       wallet,
		RecipientUsername: "payee",
		Amount:            100,
		Status:            status,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func TestInMemoryStore_InsertFindAndDuplicate(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Insert(ctx, newRequest("r1", "w1", StatusPending, now)))
	assert.ErrorIs(t, s.Insert(ctx, newRequest("r1", "w1", StatusPending, now)), ErrDuplicate)

	got, err := s.Find(ctx, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.RecipientID)

	got, err = s.Find(ctx, "r1", "w1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	_, err = s.Find(ctx, "r1", "other")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find(ctx, "  ", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find(ctx, "nope", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ListNewestFirstWithFilter(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, s.Insert(ctx, newRequest("r1", "w1", StatusPending, day1)))
	require.NoError(t, s.Insert(ctx, newRequest("r2", "w1", StatusCompleted, day1)))
	require.NoError(t, s.Insert(ctx, newRequest("r3", "w1", StatusPending, day2)))
	require.NoError(t, s.Insert(ctx, newRequest("r4", "w2", StatusPending, day2)))

	all, err := s.List(ctx, "w1", Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID)

	pending, err := s.List(ctx, "w1", Filter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	onDay1, err := s.List(ctx, "w1", Filter{Date: day1.Add(5 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, onDay1, 2)

	both, err := s.List(ctx, "w1", Filter{Status: StatusPending, Date: day2})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "r3", both[0].ID)

	none, err := s.List(ctx, "unknown", Filter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStore_TransitionIsConditional(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.Insert(ctx, newRequest("r1", "w1", StatusPending, now)))

	ok, err := s.Transition(ctx, "w1", "r1", StatusPending, StatusRejected, Party{WalletID: "w2", Username: "bob"}, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Transition(ctx, "w1", "r1", StatusPending, StatusCompleted, Party{WalletID: "w3"}, now)
	require.NoError(t, err)
	assert.False(t, ok, "second transition must match nothing")

	got, err := s.Find(ctx, "r1", "w1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "w2", got.SenderWalletID)
	assert.Equal(t, "bob", got.SenderUsername)
}

func TestInMemoryStore_TransitionRollsBack(t *testing.T) {
	s := NewInMemory()
	m := uow.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.Insert(ctx, newRequest("r1", "w1", StatusPending, now)))

	err := m.Do(ctx, func(ctx context.Context) error {
		ok, err := s.Transition(ctx, "w1", "r1", StatusPending, StatusCompleted, Party{WalletID: "w2"}, now)
		require.NoError(t, err)
		require.True(t, ok)
		return errors.New("transfer failed")
	})
	require.Error(t, err)

	got, err := s.Find(ctx, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Empty(t, got.SenderWalletID)
}

func TestInMemoryStore_Archive(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.Insert(ctx, newRequest("r1", "w1", StatusPending, now)))

	assert.ErrorIs(t, s.Archive(ctx, "w1", "r1"), ErrStillPending)
	assert.ErrorIs(t, s.Archive(ctx, "w2", "r1"), ErrNotFound)

	_, err := s.Transition(ctx, "w1", "r1", StatusPending, StatusCancelled, Party{}, now)
	require.NoError(t, err)
	require.NoError(t, s.Archive(ctx, "w1", "r1"))

	_, err = s.Find(ctx, "r1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	for _, st := range []Status{StatusCompleted, StatusRejected, StatusCancelled, StatusFailed, StatusExpired} {
		assert.True(t, st.Terminal(), st)
	}
	assert.False(t, Status("bogus").Valid())
}

func TestRequestExpired(t *testing.T) {
	now := time.Now().UTC()
	r := Request{Status: StatusPending, ExpiresAt: now.Add(-time.Second)}
	assert.True(t, r.Expired(now))
	r.Status = StatusCompleted
	assert.False(t, r.Expired(now))
	assert.False(t, Request{Status: StatusPending}.Expired(now))
}
