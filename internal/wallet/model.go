package wallet

import (
	"time"

	"github.com/congo-pay/qrwallet/internal/errs"
	"github.com/congo-pay/qrwallet/internal/ledger"
)

// recentEntries is how many entries a profile carries.
const recentEntries = 10

var (
	// ErrRecipientNotFound reports a send to a wallet that does not exist.
	ErrRecipientNotFound = errs.NotFound("recipient_not_found", "Recipient wallet not found")
	// ErrMissingRecipient rejects a send with no destination.
	ErrMissingRecipient = errs.Validation("to_wallet_id", "Wallet ID is required")
)

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletID string
	Amount   int64
	AsOf     time.Time
}

// Profile is the owner's view of their wallet.
type Profile struct {
	Username          string
	Email             string
	FullName          string
	Phone             string
	WalletID          string
	Balance           int64
	TransactionsCount int
	Recent            []ledger.Entry
}
