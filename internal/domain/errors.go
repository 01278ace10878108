package domain

import "errors"

// Ledger errors. Every failed call leaves the ledger exactly as it was before the call,
// so callers can resubmit after fixing the cause.
var (
	ErrInsufficientBalance = errors.New("insufficient trust balance")
	ErrInsufficientReserve = errors.New("insufficient balance to reserve")
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrNotReady            = errors.New("beneficiary is not ready to disburse")
	ErrNotFound            = errors.New("beneficiary not found")
	ErrTrustNotFound       = errors.New("trust not found")

	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidDelay         = errors.New("invalid delay")
	ErrDuplicateBeneficiary = errors.New("beneficiary already has a pending grant from this trust")
	ErrTransferFailed       = errors.New("outbound transfer failed")
	ErrInvariantViolation   = errors.New("ledger invariant violated")
)
