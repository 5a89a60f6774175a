package requests

import (
	"context"
	"time"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// Status is the lifecycle state of a payment request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// Valid reports whether s names a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

var (
	// ErrNotFound is returned when no request matches the lookup.
	ErrNotFound = errs.NotFound("request_not_found", "Payment request not found")
	// ErrDuplicate is returned by Insert when the request id is already stored.
	ErrDuplicate = errs.Precondition("duplicate_request", "Payment request already exists")
	// ErrStillPending rejects archiving a request that has not reached a terminal state.
	ErrStillPending = errs.Precondition("request_pending", "Only resolved requests can be archived")
)

// Party identifies one side of a request.
type Party struct {
	WalletID string
	Username string
}

// Request is a payee-initiated invitation to pay a fixed amount.
type Request struct {
	ID                string
	RecipientID       string
	RecipientUsername string
	SenderWalletID    string
	SenderUsername    string
	Amount            int64
	Description       string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         time.Time
}

// Expired reports whether a pending request has outlived its validity window.
func (r Request) Expired(now time.Time) bool {
	return r.Status == StatusPending && !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Filter narrows List results. Zero values match everything; Date matches
// requests created on the same UTC calendar day.
type Filter struct {
	Status Status
	Date   time.Time
}

func (f Filter) match(r Request) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Date.IsZero() {
		y1, m1, d1 := f.Date.UTC().Date()
		y2, m2, d2 := r.CreatedAt.UTC().Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}

// Store owns request lifecycle state. Requests are grouped by the payee
// (recipient) wallet and listed newest first.
//
// Transition is a conditional update matched on wallet id, request id and the
// expected current status. It returns false when nothing matched, which a
// caller racing another resolver treats as "already resolved".
type Store interface {
	Insert(ctx context.Context, req Request) error
	Find(ctx context.Context, requestID, walletID string) (Request, error)
	List(ctx context.Context, walletID string, filter Filter) ([]Request, error)
	Transition(ctx context.Context, walletID, requestID string, from, to Status, sender Party, at time.Time) (bool, error)
	Archive(ctx context.Context, walletID, requestID string) error
}
