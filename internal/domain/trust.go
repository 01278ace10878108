package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Address is an opaque account identifier (owner or beneficiary)
type Address string

// NewAddress trims the raw identifier and rejects empty values
func NewAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}
	return Address(trimmed), nil
}

// Validate ensures the address is usable as a ledger key
func (a Address) Validate() error {
	if strings.TrimSpace(string(a)) == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}
	return nil
}

func (a Address) String() string {
	return string(a)
}

// ValidateAmount ensures the amount is a whole number of the smallest currency unit
// and is not negative.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	if !amount.IsInteger() {
		return fmt.Errorf("%w: amount must be a whole number of units", ErrInvalidAmount)
	}
	return nil
}

// ValidatePositiveAmount is ValidateAmount plus a strictly positive check
func ValidatePositiveAmount(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// ParseAmount parses a wire amount (base-10 integer string)
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Trust is an owner's escrow account.
//
// Balance is the unencumbered pool the owner may withdraw; Reserved is the pool
// allocated to pending grants. Lifetime totals let the ledger prove conservation:
//
//	Balance + Reserved = Contributed - Withdrawn - Disbursed
type Trust struct {
	Owner       Address
	Balance     decimal.Decimal
	Reserved    decimal.Decimal
	Contributed decimal.Decimal
	Withdrawn   decimal.Decimal
	Disbursed   decimal.Decimal
}

// NewTrust returns an empty trust for owner
func NewTrust(owner Address) *Trust {
	return &Trust{
		Owner:       owner,
		Balance:     decimal.Zero,
		Reserved:    decimal.Zero,
		Contributed: decimal.Zero,
		Withdrawn:   decimal.Zero,
		Disbursed:   decimal.Zero,
	}
}

// Validate checks the conservation invariant of the trust
func (t *Trust) Validate() error {
	if err := t.Owner.Validate(); err != nil {
		return err
	}

	if t.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance for %s", ErrInvariantViolation, t.Owner)
	}
	if t.Reserved.IsNegative() {
		return fmt.Errorf("%w: negative reserve for %s", ErrInvariantViolation, t.Owner)
	}

	net := t.Contributed.Sub(t.Withdrawn).Sub(t.Disbursed)
	if !t.Balance.Add(t.Reserved).Equal(net) {
		return fmt.Errorf("%w: balance %s + reserved %s != net contribution %s for %s",
			ErrInvariantViolation, t.Balance, t.Reserved, net, t.Owner)
	}

	if t.Withdrawn.IsNegative() || t.Disbursed.IsNegative() {
		return errors.New("lifetime outflows cannot be negative")
	}

	return nil
}
