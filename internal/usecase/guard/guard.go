package guard

import (
	"fmt"

	"github.com/simaogato/disburse-backend/internal/domain"
)

// IsTrustOwner fails with ErrUnauthorized unless caller owns the trust.
// Guards are evaluated before any write.
func IsTrustOwner(caller domain.Address, trustOwner domain.Address) error {
	if err := caller.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if caller != trustOwner {
		return fmt.Errorf("%w: %s is not the trust owner", domain.ErrUnauthorized, caller)
	}
	return nil
}

// IsBeneficiaryOf fails with ErrUnauthorized unless caller is the grant's recipient
func IsBeneficiaryOf(caller domain.Address, beneficiary *domain.Beneficiary) error {
	if err := caller.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if caller != beneficiary.Address {
		return fmt.Errorf("%w: %s is not the beneficiary of grant %d", domain.ErrUnauthorized, caller, beneficiary.ID)
	}
	return nil
}

// IsOwnerOrBeneficiary fails with ErrUnauthorized unless caller is the grant's
// trust owner or its recipient
func IsOwnerOrBeneficiary(caller domain.Address, beneficiary *domain.Beneficiary) error {
	if IsTrustOwner(caller, beneficiary.TrustOwner) == nil {
		return nil
	}
	if IsBeneficiaryOf(caller, beneficiary) == nil {
		return nil
	}
	return fmt.Errorf("%w: %s is neither owner nor beneficiary of grant %d", domain.ErrUnauthorized, caller, beneficiary.ID)
}

// IsAdmin fails with ErrUnauthorized unless caller administers the contract
func IsAdmin(caller domain.Address, info *domain.ContractInfo) error {
	if err := caller.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if caller != info.Admin {
		return fmt.Errorf("%w: %s is not the administrator", domain.ErrUnauthorized, caller)
	}
	return nil
}
