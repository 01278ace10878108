package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BeneficiaryStatus is the grant lifecycle state
type BeneficiaryStatus string

const (
	BeneficiaryStatusPending   BeneficiaryStatus = "PENDING"
	BeneficiaryStatusDisbursed BeneficiaryStatus = "DISBURSED"
	BeneficiaryStatusCancelled BeneficiaryStatus = "CANCELLED"
	BeneficiaryStatusRefunded  BeneficiaryStatus = "REFUNDED"
)

// IsTerminal reports whether no further transitions are allowed
func (s BeneficiaryStatus) IsTerminal() bool {
	return s == BeneficiaryStatusDisbursed ||
		s == BeneficiaryStatusCancelled ||
		s == BeneficiaryStatusRefunded
}

// disbursementNamespace scopes the name-based UUIDs of disbursement records
var disbursementNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a10-b2c3d4e5f601")

// DisbursementIDFor derives the disbursement id of a grant from its trust owner and
// beneficiary id. The same pair always yields the same id.
func DisbursementIDFor(owner Address, beneficiaryID uint64) uuid.UUID {
	name := string(owner) + "/" + strconv.FormatUint(beneficiaryID, 10)
	return uuid.NewSHA1(disbursementNamespace, []byte(name))
}

// Beneficiary is a time-locked, amount-fixed grant from a trust to a recipient.
// The paired disbursement record is folded in via DisbursementID.
type Beneficiary struct {
	ID             uint64
	DisbursementID uuid.UUID
	TrustOwner     Address
	Address        Address
	CreatedAt      time.Time
	DisburseAt     time.Time
	Amount         decimal.Decimal // Reserved from the owner's balance at creation
	CancelAllowed  bool
	Complete       bool // Set exactly once, on successful disbursement
	Status         BeneficiaryStatus
}

// Validate ensures the grant record is internally consistent
func (b *Beneficiary) Validate() error {
	if err := b.TrustOwner.Validate(); err != nil {
		return fmt.Errorf("trust owner: %w", err)
	}
	if err := b.Address.Validate(); err != nil {
		return fmt.Errorf("beneficiary: %w", err)
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	if b.DisburseAt.Before(b.CreatedAt) {
		return errors.New("disburse time cannot precede creation time")
	}
	if b.Complete && b.Status != BeneficiaryStatusDisbursed {
		return fmt.Errorf("%w: complete grant must be disbursed", ErrInvariantViolation)
	}
	return nil
}

// IsMature reports whether now has reached the disburse time. Once mature, always mature.
func (b *Beneficiary) IsMature(now time.Time) bool {
	return !now.Before(b.DisburseAt)
}

// ReadyToDisburse reports whether the grant is pending and mature
func (b *Beneficiary) ReadyToDisburse(now time.Time) bool {
	return b.Status == BeneficiaryStatusPending && b.IsMature(now)
}

// DisbursementTask describes a matured grant still waiting for its owner or
// beneficiary to call disburse.
type DisbursementTask struct {
	BeneficiaryID  uint64
	DisbursementID uuid.UUID
	TrustOwner     Address
	Address        Address
	Amount         decimal.Decimal
	MaturedFor     time.Duration
}
