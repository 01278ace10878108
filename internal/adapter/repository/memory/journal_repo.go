package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/simaogato/disburse-backend/internal/domain"
)

// journalRepository implements domain.JournalRepository in memory
type journalRepository struct {
	mu  sync.RWMutex
	txs []*domain.Transaction // append order
}

// NewJournalRepository creates an empty in-memory journal
func NewJournalRepository() domain.JournalRepository {
	return &journalRepository{}
}

// Create appends a transaction after validating it
func (r *journalRepository) Create(_ context.Context, tx *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if err := tx.Validate(); err != nil {
		return err
	}

	stored := *tx
	stored.Entries = append([]domain.TransactionEntry(nil), tx.Entries...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, &stored)
	return nil
}

// List returns a page of transactions, newest first
func (r *journalRepository) List(_ context.Context, limit, offset int, owner *domain.Address) ([]*domain.Transaction, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if offset < 0 {
		return nil, errors.New("offset must be non-negative")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Transaction, 0, limit)
	skipped := 0
	for i := len(r.txs) - 1; i >= 0 && len(result) < limit; i-- {
		tx := r.txs[i]
		if owner != nil && tx.TrustOwner != *owner {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		copied := *tx
		result = append(result, &copied)
	}

	return result, nil
}

// Count returns the number of transactions, optionally for one trust
func (r *journalRepository) Count(_ context.Context, owner *domain.Address) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if owner == nil {
		return len(r.txs), nil
	}

	count := 0
	for _, tx := range r.txs {
		if tx.TrustOwner == *owner {
			count++
		}
	}
	return count, nil
}
