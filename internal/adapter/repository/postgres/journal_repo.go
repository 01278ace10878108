package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/simaogato/disburse-backend/internal/domain"
)

// journalRepository implements domain.JournalRepository
type journalRepository struct {
	db *DB
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *DB) domain.JournalRepository {
	return &journalRepository{db: db}
}

// Create appends a transaction with all its entries in a database transaction
func (r *journalRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if err := tx.Validate(); err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertTxQuery := `
		INSERT INTO journal_transactions (id, kind, trust_owner, beneficiary_id, date)
		VALUES ($1, $2, $3, $4, $5)
	`

	var beneficiaryID sql.NullInt64
	if tx.BeneficiaryID != nil {
		beneficiaryID = sql.NullInt64{Int64: int64(*tx.BeneficiaryID), Valid: true}
	}

	_, err = dbTx.ExecContext(ctx, insertTxQuery,
		tx.ID,
		string(tx.Kind),
		tx.TrustOwner.String(),
		beneficiaryID,
		tx.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal transaction: %w", err)
	}

	insertEntryQuery := `
		INSERT INTO journal_entries (id, transaction_id, position, account_kind, account, amount, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, entry := range tx.Entries {
		_, err = dbTx.ExecContext(ctx, insertEntryQuery,
			entry.ID,
			entry.TransactionID,
			i,
			string(entry.AccountKind),
			entry.Account.String(),
			entry.Amount.String(),
			string(entry.Type),
		)
		if err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List retrieves a page of transactions with their entries, newest first
func (r *journalRepository) List(ctx context.Context, limit, offset int, owner *domain.Address) ([]*domain.Transaction, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if offset < 0 {
		return nil, errors.New("offset must be non-negative")
	}

	query := `
		SELECT id, kind, trust_owner, beneficiary_id, date
		FROM journal_transactions
		WHERE ($1::text IS NULL OR trust_owner = $1)
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, ownerArg(owner), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*domain.Transaction, 0, limit)
	byID := make(map[uuid.UUID]*domain.Transaction, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var tx domain.Transaction
		var kind, trustOwner string
		var beneficiaryID sql.NullInt64

		if err := rows.Scan(&tx.ID, &kind, &trustOwner, &beneficiaryID, &tx.Date); err != nil {
			return nil, fmt.Errorf("failed to scan journal transaction: %w", err)
		}
		tx.Kind = domain.TransactionKind(kind)
		tx.TrustOwner = domain.Address(trustOwner)
		if beneficiaryID.Valid {
			id := uint64(beneficiaryID.Int64)
			tx.BeneficiaryID = &id
		}

		txs = append(txs, &tx)
		byID[tx.ID] = &tx
		ids = append(ids, tx.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal transactions: %w", err)
	}

	if len(ids) == 0 {
		return txs, nil
	}
	if err := r.loadEntries(ctx, ids, byID); err != nil {
		return nil, err
	}

	return txs, nil
}

func (r *journalRepository) loadEntries(ctx context.Context, ids []string, byID map[uuid.UUID]*domain.Transaction) error {
	query := `
		SELECT id, transaction_id, account_kind, account, amount, type
		FROM journal_entries
		WHERE transaction_id = ANY($1::uuid[])
		ORDER BY transaction_id, position
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.TransactionEntry
		var accountKind, account, amountStr, entryType string

		if err := rows.Scan(&entry.ID, &entry.TransactionID, &accountKind, &account, &amountStr, &entryType); err != nil {
			return fmt.Errorf("failed to scan journal entry: %w", err)
		}

		// Parse amount (NUMERIC)
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse amount: %w", err)
		}
		entry.Amount = amount
		entry.AccountKind = domain.AccountKind(accountKind)
		entry.Account = domain.Address(account)
		entry.Type = domain.EntryType(entryType)

		if tx, ok := byID[entry.TransactionID]; ok {
			tx.Entries = append(tx.Entries, entry)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	return nil
}

// Count returns the number of transactions, optionally for one trust
func (r *journalRepository) Count(ctx context.Context, owner *domain.Address) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM journal_transactions
		WHERE ($1::text IS NULL OR trust_owner = $1)
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, ownerArg(owner)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count journal transactions: %w", err)
	}
	return count, nil
}

func ownerArg(owner *domain.Address) sql.NullString {
	if owner == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: owner.String(), Valid: true}
}
