package identity

import (
	"time"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// User represents a registered wallet owner.
type User struct {
	ID           string
	WalletID     string
	Username     string
	Email        string
	FullName     string
	Phone        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Registration is the onboarding form.
type Registration struct {
	Phone    string
	Username string
	Email    string
	FullName string
	Password string
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID      string
	WalletID    string
	Username    string
	DisplayName string
	Balance     int64
}

// Outcome reports which uniqueness constraint, if any, stopped a registration.
type Outcome int

const (
	Registered Outcome = iota
	DuplicateEmail
	DuplicateUsername
	DuplicatePhone
)

func (o Outcome) String() string {
	switch o {
	case Registered:
		return "registered"
	case DuplicateEmail:
		return "duplicate_email"
	case DuplicateUsername:
		return "duplicate_username"
	case DuplicatePhone:
		return "duplicate_phone"
	default:
		return "unknown"
	}
}

// Message is the client-facing text for o.
func (o Outcome) Message() string {
	switch o {
	case Registered:
		return "User registered successfully"
	case DuplicateEmail:
		return "Email already exists"
	case DuplicateUsername:
		return "Username already exists"
	case DuplicatePhone:
		return "Phone number already exists"
	default:
		return "Duplicate entry"
	}
}

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errs.NotFound("user_not_found", "User not found")
	// ErrInvalidCredentials hides which half of a login was wrong.
	ErrInvalidCredentials = errs.Unauthenticated("invalid_credentials", "Invalid username or password")
)
