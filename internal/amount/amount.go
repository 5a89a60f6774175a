// Package amount validates monetary amounts supplied by callers. Amounts are
// whole units between 1 and MaxUnits inclusive.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/qrwallet/internal/errs"
)

// MaxUnits is the largest amount accepted in a single operation.
const MaxUnits = 1_000_000

// Reason is the machine-readable reason code reported for every amount rule.
const Reason = "amount"

// Input bounds: raw length and the exponent window accepted from scientific
// notation. Comparing a value outside the window rescales it through a power
// of ten of that size.
const (
	maxExponent = 6
	minExponent = -18
	maxRawLen   = 64
)

const (
	msgInvalid  = "Invalid amount."
	msgPositive = "Amount must be greater than zero."
	msgMax      = "Amount must be less than 1 million."
	msgWhole    = "Amount must be a whole number."
	msgValid    = "Amount is valid."
)

var maxUnits = decimal.NewFromInt(MaxUnits)

// Result is the outcome of Validate.
type Result struct {
	Valid   bool
	Reason  string
	Message string
}

// Validate applies the amount rules in order and reports the first failure.
func Validate(raw string) Result {
	_, res := check(raw)
	return res
}

// Parse validates raw and returns it as whole units.
func Parse(raw string) (int64, error) {
	d, res := check(raw)
	if !res.Valid {
		return 0, errs.Validation(res.Reason, res.Message)
	}
	return d.IntPart(), nil
}

func check(raw string) (decimal.Decimal, Result) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxRawLen {
		return decimal.Zero, invalid(msgInvalid)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid(msgInvalid)
	}
	switch {
	case !d.IsPositive():
		return d, invalid(msgPositive)
	case d.Exponent() > maxExponent:
		// a positive coefficient times 10^7 or more is already above the bound
		return d, invalid(msgMax)
	case d.Exponent() < minExponent:
		return d, invalid(msgInvalid)
	case d.GreaterThan(maxUnits):
		return d, invalid(msgMax)
	case !d.IsInteger():
		return d, invalid(msgWhole)
	}
	return d, Result{Valid: true, Reason: Reason, Message: msgValid}
}

func invalid(msg string) Result {
	return Result{Reason: Reason, Message: msg}
}

// Raw keeps a JSON amount as the client sent it, so a quoted value and a
// bare number reach Validate the same way.
type Raw string

func (r *Raw) UnmarshalJSON(b []byte) error {
	*r = Raw(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}
