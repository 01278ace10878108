package httpapi

import (
	"time"

	"github.com/simaogato/disburse-backend/internal/domain"
)

type totalsResponse struct {
	Trusts    int    `json:"trusts"`
	Balance   string `json:"balance"`
	Reserved  string `json:"reserved"`
	Held      string `json:"held"`
	Disbursed string `json:"disbursed"`
}

type summaryResponse struct {
	Owner         string `json:"owner"`
	Balance       string `json:"balance"`
	Reserved      string `json:"reserved"`
	ActiveGrants  int    `json:"active_grants"`
	MaturedGrants int    `json:"matured_grants"`
	Contributed   string `json:"contributed"`
	Withdrawn     string `json:"withdrawn"`
	Disbursed     string `json:"disbursed"`
}

type entryResponse struct {
	AccountKind string `json:"account_kind"`
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
}

type transactionResponse struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	TrustOwner    string          `json:"trust_owner"`
	BeneficiaryID *uint64         `json:"beneficiary_id,omitempty"`
	Date          time.Time       `json:"date"`
	Entries       []entryResponse `json:"entries"`
}

type journalResponse struct {
	Total        int                   `json:"total"`
	Transactions []transactionResponse `json:"transactions"`
}

type taskResponse struct {
	BeneficiaryID  uint64 `json:"beneficiary_id"`
	DisbursementID string `json:"disbursement_id"`
	TrustOwner     string `json:"trust_owner"`
	Address        string `json:"address"`
	Amount         string `json:"amount"`
	MaturedFor     string `json:"matured_for"`
}

func toTransactionResponse(tx *domain.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            tx.ID.String(),
		Kind:          string(tx.Kind),
		TrustOwner:    tx.TrustOwner.String(),
		BeneficiaryID: tx.BeneficiaryID,
		Date:          tx.Date,
		Entries:       make([]entryResponse, 0, len(tx.Entries)),
	}
	for _, entry := range tx.Entries {
		resp.Entries = append(resp.Entries, entryResponse{
			AccountKind: string(entry.AccountKind),
			Account:     entry.Account.String(),
			Amount:      entry.Amount.String(),
			Type:        string(entry.Type),
		})
	}
	return resp
}
