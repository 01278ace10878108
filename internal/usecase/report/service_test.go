package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
)

// MockJournalRepository is a mock implementation of JournalRepository
type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockJournalRepository) List(ctx context.Context, limit, offset int, owner *domain.Address) ([]*domain.Transaction, error) {
	args := m.Called(ctx, limit, offset, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockJournalRepository) Count(ctx context.Context, owner *domain.Address) (int, error) {
	args := m.Called(ctx, owner)
	return args.Int(0), args.Error(1)
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *ledger.Store {
	t.Helper()
	store := ledger.NewStore()

	require.NoError(t, store.Contribute("0xowner", decimal.NewFromInt(100)))
	require.NoError(t, store.Contribute("0xother", decimal.NewFromInt(30)))

	grants := []domain.Beneficiary{
		{TrustOwner: "0xowner", Address: "0xa", CreatedAt: epoch, DisburseAt: epoch, Amount: decimal.NewFromInt(10)},
		{TrustOwner: "0xowner", Address: "0xb", CreatedAt: epoch, DisburseAt: epoch.Add(time.Hour), Amount: decimal.NewFromInt(20)},
		{TrustOwner: "0xother", Address: "0xa", CreatedAt: epoch, DisburseAt: epoch, Amount: decimal.NewFromInt(5)},
	}
	for _, g := range grants {
		_, err := store.Allocate(g)
		require.NoError(t, err)
	}
	require.NoError(t, store.Withdraw("0xowner", decimal.NewFromInt(15)))

	return store
}

func TestGetTrustSummary(t *testing.T) {
	ctx := context.Background()
	svc := NewReportService(seededStore(t), new(MockJournalRepository))
	svc.Now = func() time.Time { return epoch.Add(time.Minute) }

	summary, err := svc.GetTrustSummary(ctx, "0xowner")

	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(55)))
	assert.True(t, summary.Reserved.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 2, summary.ActiveGrants)
	assert.Equal(t, 1, summary.MaturedGrants)
	assert.True(t, summary.Contributed.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.Withdrawn.Equal(decimal.NewFromInt(15)))
	assert.True(t, summary.Disbursed.IsZero())
}

func TestGetTrustSummary_UnknownOwnerIsZero(t *testing.T) {
	svc := NewReportService(ledger.NewStore(), new(MockJournalRepository))

	summary, err := svc.GetTrustSummary(context.Background(), "0xnobody")

	require.NoError(t, err)
	assert.True(t, summary.Balance.IsZero())
	assert.True(t, summary.Reserved.IsZero())
	assert.Equal(t, 0, summary.ActiveGrants)
}

func TestGetTrustSummary_InvalidOwner(t *testing.T) {
	svc := NewReportService(ledger.NewStore(), new(MockJournalRepository))

	_, err := svc.GetTrustSummary(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestGetLedgerTotals(t *testing.T) {
	svc := NewReportService(seededStore(t), new(MockJournalRepository))

	totals, err := svc.GetLedgerTotals(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, totals.Trusts)
	assert.True(t, totals.Balance.Equal(decimal.NewFromInt(80)))
	assert.True(t, totals.Reserved.Equal(decimal.NewFromInt(35)))
	assert.True(t, totals.Held.Equal(decimal.NewFromInt(115)))
}

func TestListJournal(t *testing.T) {
	owner := domain.Address("0xowner")
	txs := []*domain.Transaction{{Kind: domain.TransactionKindContribute, TrustOwner: owner}}

	tests := []struct {
		name      string
		limit     int
		offset    int
		owner     *domain.Address
		setupMock func(m *MockJournalRepository)
		wantTotal int
		wantErr   bool
		errMsg    string
	}{
		{
			name:   "defaults applied",
			limit:  0,
			offset: -3,
			setupMock: func(m *MockJournalRepository) {
				m.On("List", mock.Anything, DefaultPageSize, 0, (*domain.Address)(nil)).Return(txs, nil)
				m.On("Count", mock.Anything, (*domain.Address)(nil)).Return(7, nil)
			},
			wantTotal: 7,
		},
		{
			name:   "owner filter",
			limit:  10,
			offset: 5,
			owner:  &owner,
			setupMock: func(m *MockJournalRepository) {
				m.On("List", mock.Anything, 10, 5, &owner).Return(txs, nil)
				m.On("Count", mock.Anything, &owner).Return(1, nil)
			},
			wantTotal: 1,
		},
		{
			name:  "list failure",
			limit: 10,
			setupMock: func(m *MockJournalRepository) {
				m.On("List", mock.Anything, 10, 0, (*domain.Address)(nil)).Return(nil, errors.New("db down"))
			},
			wantErr: true,
			errMsg:  "failed to list journal",
		},
		{
			name:  "count failure",
			limit: 10,
			setupMock: func(m *MockJournalRepository) {
				m.On("List", mock.Anything, 10, 0, (*domain.Address)(nil)).Return(txs, nil)
				m.On("Count", mock.Anything, (*domain.Address)(nil)).Return(0, errors.New("db down"))
			},
			wantErr: true,
			errMsg:  "failed to count journal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockJournalRepository)
			tt.setupMock(repo)
			svc := NewReportService(ledger.NewStore(), repo)

			page, err := svc.ListJournal(context.Background(), tt.limit, tt.offset, tt.owner)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, page)
			} else {
				require.NoError(t, err)
				assert.Equal(t, txs, page.Transactions)
				assert.Equal(t, tt.wantTotal, page.Total)
			}
			repo.AssertExpectations(t)
		})
	}
}
