// Package wallet keeps external account balances in memory and moves value
// between them and the ledger. Recipients may register a Receiver that runs on
// every incoming payout and can reject it.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simaogato/disburse-backend/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient external funds")
	ErrLedgerShortfall   = errors.New("ledger holds less than the requested payout")
)

// Receiver reacts to value arriving at an account. Returning an error rejects
// the payment and reverses it, unless the recipient has already spent part of it.
type Receiver interface {
	Receive(ctx context.Context, from domain.Address, amount decimal.Decimal) error
}

// ReceiverFunc adapts a function to Receiver
type ReceiverFunc func(ctx context.Context, from domain.Address, amount decimal.Decimal) error

func (f ReceiverFunc) Receive(ctx context.Context, from domain.Address, amount decimal.Decimal) error {
	return f(ctx, from, amount)
}

// Wallet implements domain.Funds and domain.Faucet
type Wallet struct {
	mu        sync.Mutex
	self      domain.Address // The ledger's own account, used as payout sender
	balances  map[domain.Address]decimal.Decimal
	held      decimal.Decimal // Value currently inside the ledger
	receivers map[domain.Address]Receiver
}

// New creates an empty wallet; self identifies the ledger as sender of payouts
func New(self domain.Address) *Wallet {
	return &Wallet{
		self:      self,
		balances:  make(map[domain.Address]decimal.Decimal),
		held:      decimal.Zero,
		receivers: make(map[domain.Address]Receiver),
	}
}

// Register installs a receiver for account, replacing any previous one
func (w *Wallet) Register(account domain.Address, receiver Receiver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.receivers[account] = receiver
}

// BalanceOf returns the external balance of account
func (w *Wallet) BalanceOf(_ context.Context, account domain.Address) (decimal.Decimal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	balance, ok := w.balances[account]
	if !ok {
		return decimal.Zero, false
	}
	return balance, true
}

// Held returns the value currently held by the ledger
func (w *Wallet) Held() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held
}

// Mint creates external value for account
func (w *Wallet) Mint(_ context.Context, account domain.Address, amount decimal.Decimal) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[account] = w.balanceLocked(account).Add(amount)
	return nil
}

// Collect moves amount from the sender's external account into the ledger
func (w *Wallet) Collect(_ context.Context, from domain.Address, amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	balance := w.balanceLocked(from)
	if amount.GreaterThan(balance) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, balance, amount)
	}

	w.balances[from] = balance.Sub(amount)
	w.held = w.held.Add(amount)
	return nil
}

// Transfer pays amount from the ledger to an external account. The value is
// credited before the recipient's Receiver runs; if it rejects, the credit is
// reversed and the error returned. A rejection arriving after the recipient has
// moved the value on cannot be reversed without overdrawing the account, so the
// payment stands. The wallet lock is not held while the Receiver runs, so it may
// call back into the ledger.
func (w *Wallet) Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) error {
	if err := to.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	if amount.GreaterThan(w.held) {
		w.mu.Unlock()
		return fmt.Errorf("%w: held %s, payout %s", ErrLedgerShortfall, w.held, amount)
	}
	w.held = w.held.Sub(amount)
	w.balances[to] = w.balanceLocked(to).Add(amount)
	receiver := w.receivers[to]
	w.mu.Unlock()

	if receiver == nil {
		return nil
	}

	if err := receiver.Receive(ctx, w.self, amount); err != nil {
		w.mu.Lock()
		defer w.mu.Unlock()

		balance := w.balanceLocked(to)
		if amount.GreaterThan(balance) {
			return nil
		}
		w.balances[to] = balance.Sub(amount)
		w.held = w.held.Add(amount)
		return fmt.Errorf("recipient %s rejected payment: %w", to, err)
	}

	return nil
}

// Checkpoint captures every balance and the held amount. The returned function
// puts them back; receivers are not part of the checkpoint.
func (w *Wallet) Checkpoint() (restore func()) {
	w.mu.Lock()
	balances := maps.Clone(w.balances)
	held := w.held
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.balances = balances
		w.held = held
	}
}

func (w *Wallet) balanceLocked(account domain.Address) decimal.Decimal {
	balance, ok := w.balances[account]
	if !ok {
		return decimal.Zero
	}
	return balance
}
