package payments

import (
	"time"

	"github.com/congo-pay/qrwallet/internal/requests"
)

// Action is what an actor does to a pending request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionAccept || a == ActionReject || a == ActionCancel
}

// CreateInput is the payee's request form. Amount is the raw client value
// and is validated before anything is stored.
type CreateInput struct {
	Amount      string
	Description string
	ExpiresIn   time.Duration
}

// Created is returned to the payee after a request is stored.
type Created struct {
	RequestID string
	Amount    int64
	ExpiresAt time.Time
	QRURL     string
}

// Outcome is the result of Resolve. Status is always the request's status
// after the call, including when the call was refused.
type Outcome struct {
	RequestID  string
	Status     requests.Status
	TransferID string
	Amount     int64
}

// StatusView is the public projection served to anyone holding the id.
type StatusView struct {
	RequestID     string          `json:"request_id"`
	Status        requests.Status `json:"status"`
	Amount        int64           `json:"amount"`
	RecipientName string          `json:"recipient_name"`
	SenderName    string          `json:"sender_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ConfirmationView is shown to a payer before they accept.
type ConfirmationView struct {
	RequestID     string
	Amount        int64
	PayeeName     string
	PayeeWalletID string
	Description   string
	ExpiresAt     time.Time
}

func statusView(r requests.Request) StatusView {
	return StatusView{
		RequestID:     r.ID,
		Status:        r.Status,
		Amount:        r.Amount,
		RecipientName: r.RecipientUsername,
		SenderName:    r.SenderUsername,
		CreatedAt:     r.CreatedAt,
	}
}
