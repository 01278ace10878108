package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/disburse-backend/internal/domain"
)

// MockFaucet is a mock implementation of Faucet
type MockFaucet struct {
	mock.Mock
}

func (m *MockFaucet) BalanceOf(ctx context.Context, account domain.Address) (decimal.Decimal, bool) {
	args := m.Called(ctx, account)
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}

func (m *MockFaucet) Mint(ctx context.Context, account domain.Address, amount decimal.Decimal) error {
	args := m.Called(ctx, account, amount)
	return args.Error(0)
}

func amountOf(n int64) interface{} {
	return mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.NewFromInt(n))
	})
}

func TestParseDevAccounts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []DevAccount
		wantErr bool
		errMsg  string
	}{
		{
			name: "empty",
			raw:  "  ",
			want: []DevAccount{},
		},
		{
			name: "two accounts with spacing",
			raw:  " 0xalice=100 , 0xbob=5,",
			want: []DevAccount{
				{Address: "0xalice", Amount: decimal.NewFromInt(100)},
				{Address: "0xbob", Amount: decimal.NewFromInt(5)},
			},
		},
		{
			name:    "missing separator",
			raw:     "0xalice",
			wantErr: true,
			errMsg:  "must be address=amount",
		},
		{
			name:    "empty address",
			raw:     "=10",
			wantErr: true,
			errMsg:  "address cannot be empty",
		},
		{
			name:    "negative amount",
			raw:     "0xalice=-1",
			wantErr: true,
			errMsg:  "amount cannot be negative",
		},
		{
			name:    "duplicate",
			raw:     "0xalice=1,0xalice=2",
			wantErr: true,
			errMsg:  "listed twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, err := ParseDevAccounts(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.Len(t, accounts, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Address, accounts[i].Address)
				assert.True(t, tt.want[i].Amount.Equal(accounts[i].Amount))
			}
		})
	}
}

func TestAccountSeeder_Seed_AccountsMissing(t *testing.T) {
	ctx := context.Background()
	faucet := new(MockFaucet)
	seeder := NewAccountSeeder(faucet, []DevAccount{
		{Address: "0xalice", Amount: decimal.NewFromInt(100)},
		{Address: "0xbob", Amount: decimal.NewFromInt(50)},
	}, nil)

	faucet.On("BalanceOf", ctx, domain.Address("0xalice")).Return(decimal.Zero, false)
	faucet.On("BalanceOf", ctx, domain.Address("0xbob")).Return(decimal.Zero, false)
	faucet.On("Mint", ctx, domain.Address("0xalice"), amountOf(100)).Return(nil)
	faucet.On("Mint", ctx, domain.Address("0xbob"), amountOf(50)).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	faucet.AssertExpectations(t)
	faucet.AssertNumberOfCalls(t, "Mint", 2)
}

func TestAccountSeeder_Seed_AccountsExist(t *testing.T) {
	ctx := context.Background()
	faucet := new(MockFaucet)
	seeder := NewAccountSeeder(faucet, []DevAccount{
		{Address: "0xalice", Amount: decimal.NewFromInt(100)},
	}, nil)

	faucet.On("BalanceOf", ctx, domain.Address("0xalice")).Return(decimal.NewFromInt(3), true)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	faucet.AssertExpectations(t)
	faucet.AssertNotCalled(t, "Mint")
}

func TestAccountSeeder_Seed_MintFails(t *testing.T) {
	ctx := context.Background()
	faucet := new(MockFaucet)
	seeder := NewAccountSeeder(faucet, []DevAccount{
		{Address: "0xalice", Amount: decimal.NewFromInt(100)},
		{Address: "0xbob", Amount: decimal.NewFromInt(50)},
	}, nil)

	faucet.On("BalanceOf", ctx, domain.Address("0xalice")).Return(decimal.Zero, false)
	faucet.On("Mint", ctx, domain.Address("0xalice"), amountOf(100)).Return(errors.New("faucet closed"))

	err := seeder.Seed(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed account 0xalice")
	faucet.AssertNotCalled(t, "BalanceOf", ctx, domain.Address("0xbob"))
}
