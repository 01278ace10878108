package disbursement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
	"github.com/simaogato/disburse-backend/internal/usecase/guard"
	"github.com/simaogato/disburse-backend/internal/usecase/journal"
)

// MaxDelaySeconds is the longest grant delay representable as a time.Duration
const MaxDelaySeconds = uint64(math.MaxInt64 / int64(time.Second))

// AddBeneficiaryInput represents the input for creating a grant
type AddBeneficiaryInput struct {
	Caller        domain.Address // Must be the trust owner
	Address       domain.Address // Recipient
	DelaySeconds  uint64         // 0 means immediately eligible
	Amount        decimal.Decimal
	CancelAllowed bool
}

// DisbursementService drives the grant state machine
// (PENDING -> DISBURSED | CANCELLED | REFUNDED) against the ledger.
//
// Every operation runs as one ledger call: look up, authorize, validate, write
// state, and only then pay out. A rejected payout fails the call, and the ledger
// puts back everything the call changed, including changes made by a recipient
// re-entering it.
type DisbursementService struct {
	Store    *ledger.Store
	Funds    domain.Funds
	Recorder *journal.Recorder
	Now      func() time.Time
	logger   *zap.Logger
}

// NewDisbursementService creates a new DisbursementService instance
func NewDisbursementService(
	store *ledger.Store,
	funds domain.Funds,
	recorder *journal.Recorder,
	logger *zap.Logger,
) *DisbursementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p, ok := funds.(ledger.Participant); ok {
		store.Enlist(p)
	}
	return &DisbursementService{
		Store:    store,
		Funds:    funds,
		Recorder: recorder,
		Now:      time.Now,
		logger:   logger,
	}
}

// AddBeneficiarySeconds creates a grant from the caller's trust.
// Logic:
//  1. Validate recipient, amount and delay
//  2. The caller's trust must exist (the caller is its owner)
//  3. Reserve Amount from the unencumbered balance
//  4. Index the grant as PENDING with DisburseAt = now + delay
func (s *DisbursementService) AddBeneficiarySeconds(ctx context.Context, input AddBeneficiaryInput) (*domain.Beneficiary, error) {
	if err := input.Caller.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if err := input.Address.Validate(); err != nil {
		return nil, err
	}
	if input.Address == input.Caller {
		return nil, fmt.Errorf("%w: trust owner cannot be its own beneficiary", domain.ErrInvalidAddress)
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.DelaySeconds > MaxDelaySeconds {
		return nil, fmt.Errorf("%w: %d seconds is out of range", domain.ErrInvalidDelay, input.DelaySeconds)
	}

	var created domain.Beneficiary
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		trust, ok := s.Store.Trust(input.Caller)
		if !ok {
			return fmt.Errorf("%w: %s has never contributed", domain.ErrTrustNotFound, input.Caller)
		}
		if input.Amount.GreaterThan(trust.Balance) {
			return fmt.Errorf("%w: requested %s, available %s", domain.ErrInsufficientReserve, input.Amount, trust.Balance)
		}

		now := s.Now()
		grant, err := s.Store.Allocate(domain.Beneficiary{
			TrustOwner:    trust.Owner,
			Address:       input.Address,
			CreatedAt:     now,
			DisburseAt:    now.Add(time.Duration(input.DelaySeconds) * time.Second),
			Amount:        input.Amount,
			CancelAllowed: input.CancelAllowed,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientBalance) {
				return fmt.Errorf("%w: %v", domain.ErrInsufficientReserve, err)
			}
			return err
		}

		s.Recorder.Allocation(ctx, grant)
		s.logger.Info("beneficiary added",
			zap.String("owner", grant.TrustOwner.String()),
			zap.String("beneficiary", grant.Address.String()),
			zap.Uint64("beneficiary_id", grant.ID),
			zap.String("disbursement_id", grant.DisbursementID.String()),
			zap.String("amount", grant.Amount.String()),
			zap.Time("disburse_at", grant.DisburseAt),
			zap.Bool("cancel_allowed", grant.CancelAllowed),
		)
		created = grant
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// AddBeneficiary is the call shape without a cancel flag; such grants are cancellable
func (s *DisbursementService) AddBeneficiary(
	ctx context.Context,
	caller, address domain.Address,
	delaySeconds uint64,
	amount decimal.Decimal,
) (*domain.Beneficiary, error) {
	return s.AddBeneficiarySeconds(ctx, AddBeneficiaryInput{
		Caller:        caller,
		Address:       address,
		DelaySeconds:  delaySeconds,
		Amount:        amount,
		CancelAllowed: true,
	})
}

// RemoveBeneficiary cancels a pending grant and returns its reserve to the owner.
// A grant created with CancelAllowed=false is left untouched and false is
// returned without an error.
func (s *DisbursementService) RemoveBeneficiary(ctx context.Context, caller domain.Address, id uint64) (bool, error) {
	removed := false
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		grant, err := s.Store.Get(id)
		if err != nil {
			return err
		}
		if err := guard.IsTrustOwner(caller, grant.TrustOwner); err != nil {
			return err
		}

		if !grant.CancelAllowed {
			s.logger.Info("beneficiary kept; grant is not cancellable",
				zap.String("owner", grant.TrustOwner.String()),
				zap.Uint64("beneficiary_id", grant.ID),
			)
			return nil
		}

		cancelled, err := s.Store.Revoke(id, domain.BeneficiaryStatusCancelled)
		if err != nil {
			return err
		}

		s.Recorder.Release(ctx, cancelled)
		s.logger.Info("beneficiary cancelled",
			zap.String("owner", cancelled.TrustOwner.String()),
			zap.Uint64("beneficiary_id", cancelled.ID),
			zap.String("amount", cancelled.Amount.String()),
		)
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// DisburseFunds pays a matured grant to its beneficiary
func (s *DisbursementService) DisburseFunds(ctx context.Context, caller domain.Address, id uint64) (*domain.Beneficiary, error) {
	return s.disburse(ctx, caller, nil, id)
}

// DisburseFundsFrom pays a matured grant of owner's trust to its beneficiary.
// The id must belong to owner.
func (s *DisbursementService) DisburseFundsFrom(ctx context.Context, caller, owner domain.Address, id uint64) (*domain.Beneficiary, error) {
	return s.disburse(ctx, caller, &owner, id)
}

func (s *DisbursementService) disburse(ctx context.Context, caller domain.Address, owner *domain.Address, id uint64) (*domain.Beneficiary, error) {
	var paid domain.Beneficiary
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		grant, err := s.Store.Get(id)
		if err != nil {
			return err
		}
		if owner != nil && grant.TrustOwner != *owner {
			return fmt.Errorf("%w: grant %d does not belong to %s", domain.ErrNotFound, id, *owner)
		}
		if err := guard.IsOwnerOrBeneficiary(caller, &grant); err != nil {
			return err
		}
		if now := s.Now(); !grant.IsMature(now) {
			return fmt.Errorf("%w: grant %d matures at %s", domain.ErrNotReady, id, grant.DisburseAt.UTC().Format(time.RFC3339))
		}

		// Effects before interaction: the grant leaves the index before any value
		// moves, so a re-entrant disburse of the same id finds nothing.
		settled, err := s.Store.Settle(id)
		if err != nil {
			return err
		}

		s.Recorder.Disbursement(ctx, settled)

		if err := s.Funds.Transfer(ctx, settled.Address, settled.Amount); err != nil {
			s.logger.Warn("disbursement rolled back",
				zap.String("owner", grant.TrustOwner.String()),
				zap.Uint64("beneficiary_id", grant.ID),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}

		s.logger.Info("funds disbursed",
			zap.String("owner", settled.TrustOwner.String()),
			zap.String("beneficiary", settled.Address.String()),
			zap.Uint64("beneficiary_id", settled.ID),
			zap.String("amount", settled.Amount.String()),
			zap.String("caller", caller.String()),
		)
		paid = settled
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &paid, nil
}

// RefundTrust lets a beneficiary give up a pending grant, returning the reserve
// to the owner's balance. Only the named beneficiary may call it, whatever the
// grant's cancel flag.
func (s *DisbursementService) RefundTrust(ctx context.Context, caller domain.Address, disbursementID uuid.UUID) (*domain.Beneficiary, error) {
	var refunded domain.Beneficiary
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		grant, err := s.Store.GetByDisbursement(disbursementID)
		if err != nil {
			return err
		}
		if err := guard.IsBeneficiaryOf(caller, &grant); err != nil {
			return err
		}

		released, err := s.Store.Revoke(grant.ID, domain.BeneficiaryStatusRefunded)
		if err != nil {
			return err
		}

		s.Recorder.Release(ctx, released)
		s.logger.Info("grant refunded to trust",
			zap.String("owner", released.TrustOwner.String()),
			zap.String("beneficiary", released.Address.String()),
			zap.Uint64("beneficiary_id", released.ID),
			zap.String("amount", released.Amount.String()),
		)
		refunded = released
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &refunded, nil
}

// ReadyToDisburse reports whether the grant is pending and mature
func (s *DisbursementService) ReadyToDisburse(ctx context.Context, id uint64) (bool, error) {
	var ready bool
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		grant, err := s.Store.Get(id)
		if err != nil {
			return err
		}
		ready = grant.ReadyToDisburse(s.Now())
		return nil
	})
	return ready, err
}

// GetBeneficiary returns an active grant by id
func (s *DisbursementService) GetBeneficiary(ctx context.Context, id uint64) (*domain.Beneficiary, error) {
	return s.lookup(ctx, func() (domain.Beneficiary, error) { return s.Store.Get(id) })
}

// GetBeneficiaryByDisbursement returns an active grant by its disbursement id
func (s *DisbursementService) GetBeneficiaryByDisbursement(ctx context.Context, disbursementID uuid.UUID) (*domain.Beneficiary, error) {
	return s.lookup(ctx, func() (domain.Beneficiary, error) { return s.Store.GetByDisbursement(disbursementID) })
}

// GetBeneficiaryAtIndex returns owner's i-th active grant in ascending id order
func (s *DisbursementService) GetBeneficiaryAtIndex(ctx context.Context, owner domain.Address, i int) (*domain.Beneficiary, error) {
	return s.lookup(ctx, func() (domain.Beneficiary, error) { return s.Store.AtIndex(owner, i) })
}

// GetBeneficiaryID returns the id of owner's pending grant to address
func (s *DisbursementService) GetBeneficiaryID(ctx context.Context, owner, address domain.Address) (uint64, error) {
	var id uint64
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		found, err := s.Store.IDOf(owner, address)
		id = found
		return err
	})
	return id, err
}

// GetBeneficiaryCount returns the number of owner's active grants
func (s *DisbursementService) GetBeneficiaryCount(ctx context.Context, owner domain.Address) int {
	var count int
	_ = s.Store.Do(ctx, func(ctx context.Context) error {
		count = s.Store.CountOf(owner)
		return nil
	})
	return count
}

// GetDisbursementCount returns the number of active grants paying address
func (s *DisbursementService) GetDisbursementCount(ctx context.Context, address domain.Address) int {
	var count int
	_ = s.Store.Do(ctx, func(ctx context.Context) error {
		count = s.Store.DisbursementCount(address)
		return nil
	})
	return count
}

// GetBeneficiaryBalance returns the total reserved for owner's active grants
func (s *DisbursementService) GetBeneficiaryBalance(ctx context.Context, owner domain.Address) decimal.Decimal {
	var reserved decimal.Decimal
	_ = s.Store.Do(ctx, func(ctx context.Context) error {
		reserved = s.Store.ReservedOf(owner)
		return nil
	})
	return reserved
}

// ListBeneficiaries returns owner's active grants in ascending id order
func (s *DisbursementService) ListBeneficiaries(ctx context.Context, owner domain.Address) []domain.Beneficiary {
	var grants []domain.Beneficiary
	_ = s.Store.Do(ctx, func(ctx context.Context) error {
		grants = s.Store.Active(owner)
		return nil
	})
	return grants
}

func (s *DisbursementService) lookup(ctx context.Context, find func() (domain.Beneficiary, error)) (*domain.Beneficiary, error) {
	var grant domain.Beneficiary
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		found, err := find()
		grant = found
		return err
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}
