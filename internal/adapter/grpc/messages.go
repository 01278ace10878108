package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Amounts travel as base-10 integer strings.

type ContributeRequest struct {
	Amount string `json:"amount"`
}

type WithdrawRequest struct {
	Amount string `json:"amount"`
}

type WithdrawAllRequest struct{}

type GetTrustBalanceRequest struct {
	Owner string `json:"owner"`
}

type TrustBalanceResponse struct {
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

type WithdrawAllResponse struct {
	Owner     string `json:"owner"`
	Withdrawn string `json:"withdrawn"`
	Balance   string `json:"balance"`
}

// AddBeneficiaryRequest creates a grant from the caller's trust.
// Omitting CancelAllowed creates a cancellable grant.
type AddBeneficiaryRequest struct {
	Address       string `json:"address"`
	DelaySeconds  uint64 `json:"delay_seconds"`
	Amount        string `json:"amount"`
	CancelAllowed *bool  `json:"cancel_allowed,omitempty"`
}

type RemoveBeneficiaryRequest struct {
	BeneficiaryID uint64 `json:"beneficiary_id"`
}

type RemoveBeneficiaryResponse struct {
	Removed bool `json:"removed"`
}

// DisburseFundsRequest pays a matured grant. Owner, when set, must own the grant.
type DisburseFundsRequest struct {
	BeneficiaryID uint64 `json:"beneficiary_id"`
	Owner         string `json:"owner,omitempty"`
}

type RefundTrustRequest struct {
	DisbursementID string `json:"disbursement_id"`
}

type GetBeneficiaryRequest struct {
	BeneficiaryID uint64 `json:"beneficiary_id"`
}

type GetBeneficiaryByDisbursementRequest struct {
	DisbursementID string `json:"disbursement_id"`
}

type GetBeneficiaryAtIndexRequest struct {
	Owner string `json:"owner"`
	Index int    `json:"index"`
}

type GetBeneficiaryIDRequest struct {
	Owner   string `json:"owner"`
	Address string `json:"address"`
}

type GetBeneficiaryIDResponse struct {
	BeneficiaryID uint64 `json:"beneficiary_id"`
}

type OwnerRequest struct {
	Owner string `json:"owner"`
}

type AddressRequest struct {
	Address string `json:"address"`
}

// ExternalBalanceResponse is an account's balance outside the ledger.
// Exists is false for an account that has never held value.
type ExternalBalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Exists  bool   `json:"exists"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ReadyToDisburseResponse struct {
	Ready bool `json:"ready"`
}

type Beneficiary struct {
	BeneficiaryID  uint64                 `json:"beneficiary_id"`
	DisbursementID string                 `json:"disbursement_id"`
	TrustOwner     string                 `json:"trust_owner"`
	Address        string                 `json:"address"`
	Amount         string                 `json:"amount"`
	CancelAllowed  bool                   `json:"cancel_allowed"`
	Complete       bool                   `json:"complete"`
	Status         string                 `json:"status"`
	CreatedAt      *timestamppb.Timestamp `json:"created_at"`
	DisburseAt     *timestamppb.Timestamp `json:"disburse_at"`
}

type BeneficiaryResponse struct {
	Beneficiary *Beneficiary `json:"beneficiary"`
}

type ListBeneficiariesResponse struct {
	Beneficiaries []*Beneficiary `json:"beneficiaries"`
}

type GetInfoRequest struct{}

type InfoResponse struct {
	Name  string `json:"name"`
	Admin string `json:"admin"`
}

type SetNameRequest struct {
	Name string `json:"name"`
}

type TrustSummaryResponse struct {
	Owner         string `json:"owner"`
	Balance       string `json:"balance"`
	Reserved      string `json:"reserved"`
	ActiveGrants  int    `json:"active_grants"`
	MaturedGrants int    `json:"matured_grants"`
	Contributed   string `json:"contributed"`
	Withdrawn     string `json:"withdrawn"`
	Disbursed     string `json:"disbursed"`
}
