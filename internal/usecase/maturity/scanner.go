package maturity

import (
	"context"
	"errors"
	"time"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
)

// ScanMatured lists every active grant that has reached its disburse time but
// has not been paid yet.
//
// Logic:
//   - Iterate through the active grants in ascending id order
//   - Skip grants that are not PENDING or whose DisburseAt is still ahead
//   - Emit a DisbursementTask with how long the grant has been waiting
//
// The scan only reads. Paying a grant stays with its owner or beneficiary.
func ScanMatured(ctx context.Context, store *ledger.Store, now time.Time) ([]domain.DisbursementTask, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}

	tasks := make([]domain.DisbursementTask, 0)
	err := store.Do(ctx, func(ctx context.Context) error {
		for _, grant := range store.All() {
			if !grant.ReadyToDisburse(now) {
				continue
			}
			tasks = append(tasks, domain.DisbursementTask{
				BeneficiaryID:  grant.ID,
				DisbursementID: grant.DisbursementID,
				TrustOwner:     grant.TrustOwner,
				Address:        grant.Address,
				Amount:         grant.Amount,
				MaturedFor:     now.Sub(grant.DisburseAt),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}
