package seeder

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
)

// DevAccount is an external account credited at boot
type DevAccount struct {
	Address domain.Address
	Amount  decimal.Decimal
}

// ParseDevAccounts parses "address=amount,address=amount". Blank input yields no accounts.
func ParseDevAccounts(raw string) ([]DevAccount, error) {
	accounts := make([]DevAccount, 0)
	seen := make(map[domain.Address]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		rawAddress, rawAmount, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("dev account %q must be address=amount", part)
		}
		address, err := domain.NewAddress(rawAddress)
		if err != nil {
			return nil, err
		}
		amount, err := domain.ParseAmount(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("dev account %s: %w", address, err)
		}
		if seen[address] {
			return nil, fmt.Errorf("dev account %s listed twice", address)
		}
		seen[address] = true

		accounts = append(accounts, DevAccount{Address: address, Amount: amount})
	}

	return accounts, nil
}

// AccountSeeder credits development accounts with external value
type AccountSeeder struct {
	faucet   domain.Faucet
	accounts []DevAccount
	logger   *zap.Logger
}

// NewAccountSeeder creates a new AccountSeeder instance
func NewAccountSeeder(faucet domain.Faucet, accounts []DevAccount, logger *zap.Logger) *AccountSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountSeeder{
		faucet:   faucet,
		accounts: accounts,
		logger:   logger,
	}
}

// Seed ensures every configured account exists.
// An account that already exists is left as it is.
func (s *AccountSeeder) Seed(ctx context.Context) error {
	for _, account := range s.accounts {
		if _, exists := s.faucet.BalanceOf(ctx, account.Address); exists {
			continue
		}

		if err := s.faucet.Mint(ctx, account.Address, account.Amount); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", account.Address, err)
		}
		s.logger.Info("seeded dev account",
			zap.String("address", account.Address.String()),
			zap.String("amount", account.Amount.String()),
		)
	}

	return nil
}
