package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
)

// Recorder turns committed ledger operations into balanced journal transactions.
// Inside a ledger call the write waits until the call commits, so a failed call
// journals nothing and writes land in commit order without holding the ledger.
// The in-memory ledger is authoritative; a journal write failure is logged and
// never undoes a committed operation.
type Recorder struct {
	Repo   domain.JournalRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a new Recorder instance
func NewRecorder(repo domain.JournalRepository, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		Repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Contribution records value moving from the owner's external account into the trust
func (r *Recorder) Contribution(ctx context.Context, owner domain.Address, amount decimal.Decimal) *domain.Transaction {
	return r.record(ctx, domain.TransactionKindContribute, owner, nil, amount,
		leg{domain.AccountKindTrust, owner},
		leg{domain.AccountKindExternal, owner},
	)
}

// Withdrawal records value leaving the trust for the owner's external account
func (r *Recorder) Withdrawal(ctx context.Context, owner domain.Address, amount decimal.Decimal) *domain.Transaction {
	return r.record(ctx, domain.TransactionKindWithdraw, owner, nil, amount,
		leg{domain.AccountKindExternal, owner},
		leg{domain.AccountKindTrust, owner},
	)
}

// Allocation records a grant reserving part of the trust balance
func (r *Recorder) Allocation(ctx context.Context, grant domain.Beneficiary) *domain.Transaction {
	return r.record(ctx, domain.TransactionKindAllocate, grant.TrustOwner, &grant.ID, grant.Amount,
		leg{domain.AccountKindReserve, grant.TrustOwner},
		leg{domain.AccountKindTrust, grant.TrustOwner},
	)
}

// Release records a cancelled or refunded grant returning its reserve to the trust
func (r *Recorder) Release(ctx context.Context, grant domain.Beneficiary) *domain.Transaction {
	kind := domain.TransactionKindCancel
	if grant.Status == domain.BeneficiaryStatusRefunded {
		kind = domain.TransactionKindRefund
	}
	return r.record(ctx, kind, grant.TrustOwner, &grant.ID, grant.Amount,
		leg{domain.AccountKindTrust, grant.TrustOwner},
		leg{domain.AccountKindReserve, grant.TrustOwner},
	)
}

// Disbursement records a matured grant paid out to its beneficiary
func (r *Recorder) Disbursement(ctx context.Context, grant domain.Beneficiary) *domain.Transaction {
	return r.record(ctx, domain.TransactionKindDisburse, grant.TrustOwner, &grant.ID, grant.Amount,
		leg{domain.AccountKindExternal, grant.Address},
		leg{domain.AccountKindReserve, grant.TrustOwner},
	)
}

type leg struct {
	kind    domain.AccountKind
	account domain.Address
}

// record builds a two-entry transaction (debit, credit) and appends it, or queues
// it when ctx belongs to a ledger call. Zero amounts move nothing and are not journaled.
func (r *Recorder) record(
	ctx context.Context,
	kind domain.TransactionKind,
	owner domain.Address,
	beneficiaryID *uint64,
	amount decimal.Decimal,
	debit, credit leg,
) *domain.Transaction {
	if amount.IsZero() {
		return nil
	}

	txID := uuid.New()
	tx := &domain.Transaction{
		ID:            txID,
		Kind:          kind,
		TrustOwner:    owner,
		BeneficiaryID: beneficiaryID,
		Date:          r.now(),
		Entries: []domain.TransactionEntry{
			{
				ID:            uuid.New(),
				TransactionID: txID,
				AccountKind:   debit.kind,
				Account:       debit.account,
				Amount:        amount,
				Type:          domain.EntryTypeDebit,
			},
			{
				ID:            uuid.New(),
				TransactionID: txID,
				AccountKind:   credit.kind,
				Account:       credit.account,
				Amount:        amount,
				Type:          domain.EntryTypeCredit,
			},
		},
	}

	if err := tx.Validate(); err != nil {
		r.logger.Error("journal transaction rejected",
			zap.String("kind", string(kind)),
			zap.String("owner", owner.String()),
			zap.Error(err),
		)
		return nil
	}

	if ledger.AfterCommit(ctx, func(ctx context.Context) { r.append(ctx, tx) }) {
		return tx
	}
	if !r.append(ctx, tx) {
		return nil
	}
	return tx
}

func (r *Recorder) append(ctx context.Context, tx *domain.Transaction) bool {
	if err := r.Repo.Create(ctx, tx); err != nil {
		r.logger.Error("failed to append journal transaction",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("kind", string(tx.Kind)),
			zap.String("owner", tx.TrustOwner.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}
