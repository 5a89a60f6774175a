package payments

import "github.com/congo-pay/qrwallet/internal/errs"

var (
	// ErrNotPending rejects an action on a request that already reached a
	// terminal state. The current status travels with it in the Outcome.
	ErrNotPending = errs.Precondition("not_pending", "Payment request is no longer pending")
	// ErrExpired reports a request whose validity window has passed.
	ErrExpired = errs.Precondition("request_expired", "Payment request has expired")
	// ErrInvalidAction rejects an action outside accept, reject and cancel.
	ErrInvalidAction = errs.Validation("action", "Action must be accept, reject or cancel")
	// ErrMissingRequestID rejects an empty request id.
	ErrMissingRequestID = errs.Validation("request_id", "Request ID is required")
	// ErrOwnRequest stops a payee from paying or declining their own request.
	ErrOwnRequest = errs.Precondition("own_request", "You cannot pay your own payment request")
	// ErrNotOwner hides requests the caller cannot cancel.
	ErrNotOwner = errs.NotFound("request_not_found", "Payment request not found or you're not authorized")
	// ErrPayeeNotFound reports a request whose payee account no longer exists.
	ErrPayeeNotFound = errs.NotFound("payee_not_found", "Payee account not found")
	// ErrInvalidStatus rejects an unknown status filter.
	ErrInvalidStatus = errs.Validation("status", "Unknown request status")
)
