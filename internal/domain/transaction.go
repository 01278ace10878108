package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType represents the side of a journal entry
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// AccountKind names the pool an entry moves value in or out of
type AccountKind string

const (
	AccountKindTrust    AccountKind = "TRUST"    // Owner's unencumbered balance
	AccountKindReserve  AccountKind = "RESERVE"  // Owner's allocated-but-pending pool
	AccountKindExternal AccountKind = "EXTERNAL" // Value held outside the ledger
)

// TransactionKind identifies the ledger operation a journal transaction records
type TransactionKind string

const (
	TransactionKindContribute TransactionKind = "CONTRIBUTE"
	TransactionKindWithdraw   TransactionKind = "WITHDRAW"
	TransactionKindAllocate   TransactionKind = "ALLOCATE"
	TransactionKindCancel     TransactionKind = "CANCEL"
	TransactionKindDisburse   TransactionKind = "DISBURSE"
	TransactionKindRefund     TransactionKind = "REFUND"
)

// Transaction is one committed ledger operation recorded in the journal
type Transaction struct {
	ID            uuid.UUID
	Kind          TransactionKind
	TrustOwner    Address
	BeneficiaryID *uint64 // NULL for trust-only operations
	Date          time.Time
	Entries       []TransactionEntry
}

// TransactionEntry is a single movement of value in or out of an account
type TransactionEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountKind   AccountKind
	Account       Address
	Amount        decimal.Decimal // ABSOLUTE VALUE (Always Positive)
	Type          EntryType
}

// Validate ensures the transaction adheres to journal rules
// CRITICAL: Sum of debits must equal sum of credits
func (t *Transaction) Validate() error {
	if len(t.Entries) == 0 {
		return errors.New("transaction must have at least one entry")
	}

	if err := t.TrustOwner.Validate(); err != nil {
		return err
	}

	var totalDebits decimal.Decimal
	var totalCredits decimal.Decimal

	for _, entry := range t.Entries {
		switch entry.AccountKind {
		case AccountKindTrust, AccountKindReserve, AccountKindExternal:
		default:
			return errors.New("entry account kind must be TRUST, RESERVE or EXTERNAL")
		}

		if entry.Amount.LessThanOrEqual(decimal.Zero) {
			return errors.New("entry amount must be positive (absolute value)")
		}

		switch entry.Type {
		case EntryTypeDebit:
			totalDebits = totalDebits.Add(entry.Amount)
		case EntryTypeCredit:
			totalCredits = totalCredits.Add(entry.Amount)
		default:
			return errors.New("entry type must be DEBIT or CREDIT")
		}
	}

	if !totalDebits.Equal(totalCredits) {
		return errors.New("sum of debits must equal sum of credits")
	}

	return nil
}
