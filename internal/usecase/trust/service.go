package trust

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
	"github.com/simaogato/disburse-backend/internal/usecase/journal"
)

// TrustService handles contributions to and withdrawals from a trust
type TrustService struct {
	Store    *ledger.Store
	Funds    domain.Funds
	Recorder *journal.Recorder
	logger   *zap.Logger
}

// NewTrustService creates a new TrustService instance
func NewTrustService(store *ledger.Store, funds domain.Funds, recorder *journal.Recorder, logger *zap.Logger) *TrustService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p, ok := funds.(ledger.Participant); ok {
		store.Enlist(p)
	}
	return &TrustService{
		Store:    store,
		Funds:    funds,
		Recorder: recorder,
		logger:   logger,
	}
}

// Contribute credits the caller's trust with value attached to the call.
// Logic:
//  1. Validate the amount
//  2. Collect the attached value from the caller's external account
//  3. Credit the trust (created on first contribution)
func (s *TrustService) Contribute(ctx context.Context, caller domain.Address, amount decimal.Decimal) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return err
	}

	return s.Store.Do(ctx, func(ctx context.Context) error {
		if err := s.Funds.Collect(ctx, caller, amount); err != nil {
			return fmt.Errorf("failed to collect contribution: %w", err)
		}

		if err := s.Store.Contribute(caller, amount); err != nil {
			return err
		}

		s.Recorder.Contribution(ctx, caller, amount)
		s.logger.Info("trust contribution",
			zap.String("owner", caller.String()),
			zap.String("amount", amount.String()),
		)
		return nil
	})
}

// Withdraw pays amount from the caller's unencumbered balance to the caller.
// State is written before the payout; a rejected payout fails the call, which
// puts the trust and the external accounts back as they were.
func (s *TrustService) Withdraw(ctx context.Context, caller domain.Address, amount decimal.Decimal) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	return s.Store.Do(ctx, func(ctx context.Context) error {
		return s.withdraw(ctx, caller, amount)
	})
}

// WithdrawAll pays the caller's entire unencumbered balance to the caller.
// Reserved funds are untouched. An empty balance is a no-op.
func (s *TrustService) WithdrawAll(ctx context.Context, caller domain.Address) (decimal.Decimal, error) {
	if err := caller.Validate(); err != nil {
		return decimal.Zero, err
	}

	var withdrawn decimal.Decimal
	err := s.Store.Do(ctx, func(ctx context.Context) error {
		balance := s.Store.BalanceOf(caller)
		if balance.IsZero() {
			withdrawn = decimal.Zero
			return nil
		}
		if err := s.withdraw(ctx, caller, balance); err != nil {
			return err
		}
		withdrawn = balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return withdrawn, nil
}

func (s *TrustService) withdraw(ctx context.Context, caller domain.Address, amount decimal.Decimal) error {
	if err := s.Store.Withdraw(caller, amount); err != nil {
		return err
	}

	s.Recorder.Withdrawal(ctx, caller, amount)

	if err := s.Funds.Transfer(ctx, caller, amount); err != nil {
		s.logger.Warn("withdrawal rolled back",
			zap.String("owner", caller.String()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	s.logger.Info("trust withdrawal",
		zap.String("owner", caller.String()),
		zap.String("amount", amount.String()),
	)
	return nil
}

// BalanceOf returns the owner's unencumbered balance; zero for unknown owners
func (s *TrustService) BalanceOf(ctx context.Context, owner domain.Address) decimal.Decimal {
	var balance decimal.Decimal
	_ = s.Store.Do(ctx, func(ctx context.Context) error {
		balance = s.Store.BalanceOf(owner)
		return nil
	})
	return balance
}
