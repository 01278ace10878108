package domain

import (
	"errors"
	"strings"
)

// ContractInfo is the naming/administration record. It has no bearing on ledger
// invariants and is kept apart from the disbursement engine.
//
// An empty Admin means nobody may rename the contract.
type ContractInfo struct {
	Name  string
	Admin Address
}

// Validate ensures the record has a non-blank name and, if set, a usable administrator
func (c *ContractInfo) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("contract name cannot be empty")
	}
	if c.Admin != "" {
		if err := c.Admin.Validate(); err != nil {
			return err
		}
	}
	return nil
}
