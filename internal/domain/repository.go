package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// JournalRepository defines the interface for journal persistence operations
type JournalRepository interface {
	// Create appends a committed transaction with all of its entries
	Create(ctx context.Context, tx *Transaction) error

	// List retrieves a page of transactions, newest first
	// If owner is nil, returns transactions of every trust
	List(ctx context.Context, limit, offset int, owner *Address) ([]*Transaction, error)

	// Count returns the number of transactions, optionally for one trust
	Count(ctx context.Context, owner *Address) (int, error)
}

// Funds moves value between external accounts and the ledger.
// Implementations may call back into the ledger synchronously from Transfer
// (a recipient reacting to incoming value); the ledger must tolerate that.
type Funds interface {
	// Collect takes amount from the caller's external account into the ledger
	Collect(ctx context.Context, from Address, amount decimal.Decimal) error

	// Transfer pays amount out of the ledger to an external account.
	// An error means the recipient did not accept the value.
	Transfer(ctx context.Context, to Address, amount decimal.Decimal) error
}

// Faucet credits development accounts with spendable external value
type Faucet interface {
	// BalanceOf returns the external balance of account and whether it exists
	BalanceOf(ctx context.Context, account Address) (decimal.Decimal, bool)

	// Mint creates external value for account
	Mint(ctx context.Context, account Address, amount decimal.Decimal) error
}
