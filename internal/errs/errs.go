package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it to a status code.
type Kind int

const (
	// KindUnknown is any error that did not originate from this taxonomy.
	KindUnknown Kind = iota
	// KindValidation marks malformed or out-of-range input.
	KindValidation
	// KindNotFound marks a referenced wallet or request that does not exist.
	KindNotFound
	// KindPrecondition marks a valid target in the wrong state.
	KindPrecondition
	// KindStore marks an unreachable or failed persistence layer.
	KindStore
	// KindTransfer marks an atomic transfer that could not complete.
	KindTransfer
	// KindUnauthenticated marks a missing or invalid credential.
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindStore:
		return "store"
	case KindTransfer:
		return "transfer"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Error carries a machine-readable reason and a human-readable message.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error.
func Validation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(reason, message string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: message}
}

// Precondition builds a KindPrecondition error.
func Precondition(reason, message string) *Error {
	return &Error{Kind: KindPrecondition, Reason: reason, Message: message}
}

// Unauthenticated builds a KindUnauthenticated error.
func Unauthenticated(reason, message string) *Error {
	return &Error{Kind: KindUnauthenticated, Reason: reason, Message: message}
}

// Store wraps a persistence failure. The cause stays server-side; Message is generic.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStore, Reason: "store", Message: "internal storage failure", Err: fmt.Errorf("%s: %w", op, err)}
}

// Transfer wraps a failure raised while funds were being moved.
func Transfer(err error) *Error {
	return &Error{Kind: KindTransfer, Reason: "transfer_failed", Message: "transfer could not be completed", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
