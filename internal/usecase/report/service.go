package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
)

// DefaultPageSize is used when a journal page is requested without a limit
const DefaultPageSize = 50

// TrustSummary represents one owner's position in the ledger
type TrustSummary struct {
	Owner         domain.Address
	Balance       decimal.Decimal
	Reserved      decimal.Decimal
	ActiveGrants  int
	MaturedGrants int
	Contributed   decimal.Decimal
	Withdrawn     decimal.Decimal
	Disbursed     decimal.Decimal
}

// LedgerTotals aggregates every trust
type LedgerTotals struct {
	Trusts    int
	Balance   decimal.Decimal
	Reserved  decimal.Decimal
	Held      decimal.Decimal // Balance + Reserved
	Disbursed decimal.Decimal
}

// JournalPage is a page of journal transactions
type JournalPage struct {
	Transactions []*domain.Transaction
	Total        int
}

// ReportService handles read-only reporting over the ledger and its journal
type ReportService struct {
	Store       *ledger.Store
	JournalRepo domain.JournalRepository
	Now         func() time.Time
}

// NewReportService creates a new ReportService instance
func NewReportService(store *ledger.Store, journalRepo domain.JournalRepository) *ReportService {
	return &ReportService{
		Store:       store,
		JournalRepo: journalRepo,
		Now:         time.Now,
	}
}

// GetTrustSummary returns the owner's balances, grant counts and lifetime totals.
// An owner that never contributed gets an all-zero summary.
func (s *ReportService) GetTrustSummary(ctx context.Context, owner domain.Address) (*TrustSummary, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	summary := &TrustSummary{
		Owner:       owner,
		Balance:     decimal.Zero,
		Reserved:    decimal.Zero,
		Contributed: decimal.Zero,
		Withdrawn:   decimal.Zero,
		Disbursed:   decimal.Zero,
	}

	err := s.Store.Do(ctx, func(ctx context.Context) error {
		trust, ok := s.Store.Trust(owner)
		if !ok {
			return nil
		}
		summary.Balance = trust.Balance
		summary.Reserved = trust.Reserved
		summary.Contributed = trust.Contributed
		summary.Withdrawn = trust.Withdrawn
		summary.Disbursed = trust.Disbursed

		now := s.Now()
		for _, grant := range s.Store.Active(owner) {
			summary.ActiveGrants++
			if grant.IsMature(now) {
				summary.MaturedGrants++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize trust: %w", err)
	}

	return summary, nil
}

// GetLedgerTotals sums every trust.
// Logic:
//   - Balance: sum of unencumbered balances
//   - Reserved: sum of reserves held for pending grants
//   - Held: Balance + Reserved, the value the ledger must hold externally
func (s *ReportService) GetLedgerTotals(ctx context.Context) (*LedgerTotals, error) {
	totals := &LedgerTotals{
		Balance:   decimal.Zero,
		Reserved:  decimal.Zero,
		Held:      decimal.Zero,
		Disbursed: decimal.Zero,
	}

	err := s.Store.Do(ctx, func(ctx context.Context) error {
		for _, owner := range s.Store.Owners() {
			trust, ok := s.Store.Trust(owner)
			if !ok {
				continue
			}
			totals.Trusts++
			totals.Balance = totals.Balance.Add(trust.Balance)
			totals.Reserved = totals.Reserved.Add(trust.Reserved)
			totals.Disbursed = totals.Disbursed.Add(trust.Disbursed)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to total ledger: %w", err)
	}

	totals.Held = totals.Balance.Add(totals.Reserved)
	return totals, nil
}

// ListJournal returns a page of journal transactions, newest first, optionally
// for one owner
func (s *ReportService) ListJournal(ctx context.Context, limit, offset int, owner *domain.Address) (*JournalPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	txs, err := s.JournalRepo.List(ctx, limit, offset, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}

	total, err := s.JournalRepo.Count(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal: %w", err)
	}

	return &JournalPage{Transactions: txs, Total: total}, nil
}
