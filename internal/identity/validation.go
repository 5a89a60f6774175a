package identity

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/congo-pay/qrwallet/internal/errs"
)

const passwordSpecials = "!@#$%^&*"

// normalize lowercases the case-insensitive fields and trims all of them.
func (r Registration) normalize() Registration {
	return Registration{
		Phone:    strings.TrimSpace(r.Phone),
		Username: strings.ToLower(strings.TrimSpace(r.Username)),
		Email:    strings.ToLower(strings.TrimSpace(r.Email)),
		FullName: strings.ToLower(strings.TrimSpace(r.FullName)),
		Password: r.Password,
	}
}

func (r Registration) validate() error {
	fields := []struct {
		name     string
		value    string
		min, max int
	}{
		{"phone", r.Phone, 10, 13},
		{"username", r.Username, 5, 30},
		{"email", r.Email, 5, 30},
		{"full_name", r.FullName, 5, 30},
	}
	for _, f := range fields {
		if n := len(f.value); n < f.min || n > f.max {
			return errs.Validation(f.name, f.name+" must be between "+strconv.Itoa(f.min)+" and "+strconv.Itoa(f.max)+" characters.")
		}
	}
	if !strings.Contains(r.Email, "@") {
		return errs.Validation("email", "email is not valid.")
	}
	return validatePassword(r.Password)
}

func validatePassword(p string) error {
	if len(p) < 8 {
		return errs.Validation("length", "Password must be at least 8 characters long.")
	}
	if len(p) > 100 {
		return errs.Validation("length", "Password must be at most 100 characters long.")
	}
	var lower, upper, digit, special bool
	for _, c := range p {
		switch {
		case unicode.IsLower(c):
			lower = true
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsDigit(c):
			digit = true
		case strings.ContainsRune(passwordSpecials, c):
			special = true
		}
	}
	switch {
	case !lower:
		return errs.Validation("lowercase", "Password must contain at least one lowercase letter.")
	case !upper:
		return errs.Validation("uppercase", "Password must contain at least one uppercase letter.")
	case !digit:
		return errs.Validation("digit", "Password must contain at least one digit.")
	case !special:
		return errs.Validation("special", "Password must contain at least one special character: "+passwordSpecials)
	}
	return nil
}
