package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/disburse-backend/internal/domain"
)

const (
	owner = domain.Address("0xowner")
	bene  = domain.Address("0xbene")
)

func units(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func grant(address domain.Address, amount int64) domain.Beneficiary {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Beneficiary{
		TrustOwner:    owner,
		Address:       address,
		CreatedAt:     now,
		DisburseAt:    now.Add(time.Minute),
		Amount:        units(amount),
		CancelAllowed: true,
	}
}

func TestStore_BalanceOfUnknownOwnerIsZero(t *testing.T) {
	s := NewStore()

	assert.True(t, s.BalanceOf("0xnobody").IsZero())
	assert.True(t, s.ReservedOf("0xnobody").IsZero())
	_, ok := s.Trust("0xnobody")
	assert.False(t, ok)
}

func TestStore_ContributeAndWithdraw(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Contribute(owner, units(10)))
	assert.True(t, s.BalanceOf(owner).Equal(units(10)))

	require.NoError(t, s.Contribute(owner, units(5)))
	assert.True(t, s.BalanceOf(owner).Equal(units(15)))

	err := s.Withdraw(owner, units(16))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, s.BalanceOf(owner).Equal(units(15)), "failed withdraw must not change balance")

	require.NoError(t, s.Withdraw(owner, units(15)))
	assert.True(t, s.BalanceOf(owner).IsZero())

	trust, ok := s.Trust(owner)
	require.True(t, ok)
	assert.True(t, trust.Contributed.Equal(units(15)))
	assert.True(t, trust.Withdrawn.Equal(units(15)))
	require.NoError(t, s.Audit())
}

func TestStore_ContributeRejectsInvalidAmounts(t *testing.T) {
	s := NewStore()

	assert.ErrorIs(t, s.Contribute(owner, decimal.Zero), domain.ErrInvalidAmount)
	assert.ErrorIs(t, s.Contribute(owner, units(-1)), domain.ErrInvalidAmount)
	assert.ErrorIs(t, s.Contribute("", units(1)), domain.ErrInvalidAddress)

	_, ok := s.Trust(owner)
	assert.False(t, ok, "failed contribution must not create a trust")
}

func TestStore_WithdrawFromUnknownOwner(t *testing.T) {
	s := NewStore()

	assert.ErrorIs(t, s.Withdraw("0xnobody", units(1)), domain.ErrInsufficientBalance)
}

func TestStore_ReserveAndRelease(t *testing.T) {
	s := NewStore()

	assert.ErrorIs(t, s.Reserve(owner, units(1)), domain.ErrTrustNotFound)

	require.NoError(t, s.Contribute(owner, units(10)))
	require.NoError(t, s.Reserve(owner, units(3)))
	assert.True(t, s.BalanceOf(owner).Equal(units(7)))
	assert.True(t, s.ReservedOf(owner).Equal(units(3)))

	assert.ErrorIs(t, s.Reserve(owner, units(8)), domain.ErrInsufficientBalance)
	assert.ErrorIs(t, s.Release(owner, units(4)), domain.ErrInsufficientReserve)

	require.NoError(t, s.Release(owner, units(3)))
	assert.True(t, s.BalanceOf(owner).Equal(units(10)))
	assert.True(t, s.ReservedOf(owner).IsZero())
}

func TestStore_AllocateIndexesGrant(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Contribute(owner, units(10)))

	created, err := s.Allocate(grant(bene, 2))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), created.ID)
	assert.Equal(t, domain.DisbursementIDFor(owner, 1), created.DisbursementID)
	assert.Equal(t, domain.BeneficiaryStatusPending, created.Status)
	assert.True(t, s.BalanceOf(owner).Equal(units(8)))
	assert.True(t, s.ReservedOf(owner).Equal(units(2)))
	assert.Equal(t, 1, s.CountOf(owner))
	assert.Equal(t, 1, s.DisbursementCount(bene))

	id, err := s.IDOf(owner, bene)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	byDisbursement, err := s.GetByDisbursement(created.DisbursementID)
	require.NoError(t, err)
	assert.Equal(t, created, byDisbursement)

	atZero, err := s.AtIndex(owner, 0)
	require.NoError(t, err)
	assert.Equal(t, created, atZero)

	require.NoError(t, s.Audit())
}

func TestStore_AllocateFailuresLeaveNoRecord(t *testing.T) {
	s := NewStore()

	_, err := s.Allocate(grant(bene, 2))
	assert.ErrorIs(t, err, domain.ErrTrustNotFound)

	require.NoError(t, s.Contribute(owner, units(10)))

	_, err = s.Allocate(grant(bene, 11))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, 0, s.CountOf(owner))
	assert.True(t, s.BalanceOf(owner).Equal(units(10)))

	_, err = s.Allocate(grant(bene, 2))
	require.NoError(t, err)
	_, err = s.Allocate(grant(bene, 2))
	assert.ErrorIs(t, err, domain.ErrDuplicateBeneficiary)
	assert.Equal(t, 1, s.CountOf(owner))
	assert.True(t, s.BalanceOf(owner).Equal(units(8)))
}

func TestStore_IdsAreNeverReused(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Contribute(owner, units(10)))

	first, err := s.Allocate(grant(bene, 1))
	require.NoError(t, err)
	_, err = s.Revoke(first.ID, domain.BeneficiaryStatusCancelled)
	require.NoError(t, err)

	second, err := s.Allocate(grant(bene, 1))
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	assert.NotEqual(t, first.DisbursementID, second.DisbursementID)
}

func TestStore_IndexViewShiftsButIdsDoNot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Contribute(owner, units(10)))

	a, err := s.Allocate(grant("0xa", 1))
	require.NoError(t, err)
	b, err := s.Allocate(grant("0xb", 1))
	require.NoError(t, err)
	c, err := s.Allocate(grant("0xc", 1))
	require.NoError(t, err)

	_, err = s.Revoke(b.ID, domain.BeneficiaryStatusCancelled)
	require.NoError(t, err)

	atOne, err := s.AtIndex(owner, 1)
	require.NoError(t, err)
	assert.Equal(t, c.ID, atOne.ID)

	_, err = s.AtIndex(owner, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stillA, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Address("0xa"), stillA.Address)

	active := s.Active(owner)
	require.Len(t, active, 2)
	assert.Equal(t, a.ID, active[0].ID)
	assert.Equal(t, c.ID, active[1].ID)
}

func TestStore_RevokeReleasesReserve(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Contribute(owner, units(10)))
	created, err := s.Allocate(grant(bene, 4))
	require.NoError(t, err)

	_, err = s.Revoke(created.ID, domain.BeneficiaryStatusDisbursed)
	assert.Error(t, err)

	refunded, err := s.Revoke(created.ID, domain.BeneficiaryStatusRefunded)
	require.NoError(t, err)

	assert.Equal(t, domain.BeneficiaryStatusRefunded, refunded.Status)
	assert.True(t, s.BalanceOf(owner).Equal(units(10)))
	assert.Equal(t, 0, s.CountOf(owner))
	assert.Equal(t, 0, s.DisbursementCount(bene))

	_, err = s.Get(created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, s.Audit())
}

func TestStore_Settle(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Contribute(owner, units(10)))
	created, err := s.Allocate(grant(bene, 2))
	require.NoError(t, err)

	settled, err := s.Settle(created.ID)
	require.NoError(t, err)
	assert.True(t, settled.Complete)
	assert.Equal(t, domain.BeneficiaryStatusDisbursed, settled.Status)
	assert.Equal(t, 0, s.CountOf(owner))
	assert.True(t, s.ReservedOf(owner).IsZero())
	assert.True(t, s.BalanceOf(owner).Equal(units(8)))

	trust, _ := s.Trust(owner)
	assert.True(t, trust.Disbursed.Equal(units(2)))

	_, err = s.Settle(created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, s.Audit())
}

func TestStore_DoAdmitsReentrantCalls(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	assert.False(t, s.InCall(ctx))

	var nested bool
	err := s.Do(ctx, func(ctx context.Context) error {
		assert.True(t, s.InCall(ctx))
		return s.Do(ctx, func(ctx context.Context) error {
			nested = true
			return nil
		})
	})

	require.NoError(t, err)
	assert.True(t, nested)
	assert.False(t, NewStore().InCall(ctx), "scope belongs to one store only")
}

func TestStore_DoSerializesTopLevelCalls(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(ctx, func(ctx context.Context) error {
				return s.Contribute(owner, units(1))
			})
		}()
	}
	wg.Wait()

	assert.True(t, s.BalanceOf(owner).Equal(units(50)))
}

// counter is an external account enlisted in the store's calls
type counter struct {
	value int
}

func (c *counter) Checkpoint() func() {
	saved := c.value
	return func() { c.value = saved }
}

func TestStore_FailedCallRestoresEverything(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	external := &counter{value: 5}
	s.Enlist(external)
	s.Enlist(external)

	require.NoError(t, s.Contribute(owner, units(10)))
	kept, err := s.Allocate(grant("0xkept", 3))
	require.NoError(t, err)

	errRejected := errors.New("rejected")
	err = s.Do(ctx, func(ctx context.Context) error {
		if _, err := s.Settle(kept.ID); err != nil {
			return err
		}
		external.value += 3

		// a nested call that succeeds is still undone with the call around it
		require.NoError(t, s.Do(ctx, func(context.Context) error {
			if err := s.Contribute("0xother", units(7)); err != nil {
				return err
			}
			_, err := s.Allocate(grant("0xnew", 4))
			return err
		}))
		external.value -= 7
		return errRejected
	})

	require.ErrorIs(t, err, errRejected)
	assert.Equal(t, 5, external.value)

	restored, err := s.Get(kept.ID)
	require.NoError(t, err)
	assert.Equal(t, kept, restored)
	assert.Equal(t, 1, s.CountOf(owner))
	assert.True(t, s.ReservedOf(owner).Equal(units(3)))
	assert.True(t, s.BalanceOf(owner).Equal(units(7)))
	assert.True(t, s.BalanceOf("0xother").IsZero())
	assert.Equal(t, 0, s.DisbursementCount("0xnew"))
	require.NoError(t, s.Audit())

	// the id handed out by the failed call stays used
	next, err := s.Allocate(grant("0xnew", 1))
	require.NoError(t, err)
	assert.Equal(t, kept.ID+2, next.ID)
}

func TestStore_FailedNestedCallKeepsOuterWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	external := &counter{}
	s.Enlist(external)

	err := s.Do(ctx, func(ctx context.Context) error {
		if err := s.Contribute(owner, units(10)); err != nil {
			return err
		}
		external.value = 1

		nestedErr := s.Do(ctx, func(context.Context) error {
			external.value = 2
			if err := s.Withdraw(owner, units(4)); err != nil {
				return err
			}
			return s.Withdraw(owner, units(7))
		})
		assert.ErrorIs(t, nestedErr, domain.ErrInsufficientBalance)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, external.value)
	assert.True(t, s.BalanceOf(owner).Equal(units(10)))
	trust, _ := s.Trust(owner)
	assert.True(t, trust.Withdrawn.IsZero())
}

func TestStore_AfterCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("runs queued work in order once the call is released", func(t *testing.T) {
		s := NewStore()
		var ran []string

		err := s.Do(ctx, func(ctx context.Context) error {
			assert.True(t, AfterCommit(ctx, func(context.Context) { ran = append(ran, "outer") }))
			err := s.Do(ctx, func(ctx context.Context) error {
				AfterCommit(ctx, func(ctx context.Context) {
					assert.False(t, s.InCall(ctx))
					ran = append(ran, "nested")
				})
				return nil
			})
			AfterCommit(ctx, func(context.Context) { ran = append(ran, "last") })
			assert.Empty(t, ran)
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"outer", "nested", "last"}, ran)
	})

	t.Run("drops work queued by a failed call", func(t *testing.T) {
		s := NewStore()
		var ran []string

		err := s.Do(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { ran = append(ran, "kept") })
			_ = s.Do(ctx, func(ctx context.Context) error {
				AfterCommit(ctx, func(context.Context) { ran = append(ran, "dropped") })
				return errors.New("nested failure")
			})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"kept"}, ran)

		ran = nil
		err = s.Do(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { ran = append(ran, "dropped") })
			return errors.New("failure")
		})
		require.Error(t, err)
		assert.Empty(t, ran)
	})

	t.Run("outside a call nothing is queued", func(t *testing.T) {
		assert.False(t, AfterCommit(ctx, func(context.Context) { t.Fatal("must not run") }))
	})
}
