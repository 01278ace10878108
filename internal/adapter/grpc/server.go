package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/simaogato/disburse-backend/internal/adapter/wallet"
	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/usecase/disbursement"
	"github.com/simaogato/disburse-backend/internal/usecase/registry"
	"github.com/simaogato/disburse-backend/internal/usecase/report"
	"github.com/simaogato/disburse-backend/internal/usecase/trust"
)

// Server implements the DisburseService gRPC server
type Server struct {
	TrustService        *trust.TrustService
	DisbursementService *disbursement.DisbursementService
	RegistryService     *registry.RegistryService
	ReportService       *report.ReportService
	Accounts            domain.Faucet
}

// NewServer creates a new gRPC server instance
func NewServer(
	trustService *trust.TrustService,
	disbursementService *disbursement.DisbursementService,
	registryService *registry.RegistryService,
	reportService *report.ReportService,
	accounts domain.Faucet,
) *Server {
	return &Server{
		TrustService:        trustService,
		DisbursementService: disbursementService,
		RegistryService:     registryService,
		ReportService:       reportService,
		Accounts:            accounts,
	}
}

var _ DisburseServiceServer = (*Server)(nil)

// Contribute handles the Contribute RPC
func (s *Server) Contribute(ctx context.Context, req *ContributeRequest) (*TrustBalanceResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	if err := s.TrustService.Contribute(ctx, caller, amount); err != nil {
		return nil, mapError(err)
	}

	return s.balanceResponse(ctx, caller), nil
}

// Withdraw handles the Withdraw RPC
func (s *Server) Withdraw(ctx context.Context, req *WithdrawRequest) (*TrustBalanceResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	if err := s.TrustService.Withdraw(ctx, caller, amount); err != nil {
		return nil, mapError(err)
	}

	return s.balanceResponse(ctx, caller), nil
}

// WithdrawAll handles the WithdrawAll RPC
func (s *Server) WithdrawAll(ctx context.Context, _ *WithdrawAllRequest) (*WithdrawAllResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	withdrawn, err := s.TrustService.WithdrawAll(ctx, caller)
	if err != nil {
		return nil, mapError(err)
	}

	return &WithdrawAllResponse{
		Owner:     caller.String(),
		Withdrawn: withdrawn.String(),
		Balance:   s.TrustService.BalanceOf(ctx, caller).String(),
	}, nil
}

// GetTrustBalance handles the GetTrustBalance RPC
func (s *Server) GetTrustBalance(ctx context.Context, req *GetTrustBalanceRequest) (*TrustBalanceResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	return s.balanceResponse(ctx, owner), nil
}

// AddBeneficiary handles the AddBeneficiary RPC
func (s *Server) AddBeneficiary(ctx context.Context, req *AddBeneficiaryRequest) (*BeneficiaryResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	address, err := parseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	var grant *domain.Beneficiary
	if req.CancelAllowed == nil {
		grant, err = s.DisbursementService.AddBeneficiary(ctx, caller, address, req.DelaySeconds, amount)
	} else {
		grant, err = s.DisbursementService.AddBeneficiarySeconds(ctx, disbursement.AddBeneficiaryInput{
			Caller:        caller,
			Address:       address,
			DelaySeconds:  req.DelaySeconds,
			Amount:        amount,
			CancelAllowed: *req.CancelAllowed,
		})
	}
	if err != nil {
		return nil, mapError(err)
	}

	return &BeneficiaryResponse{Beneficiary: toProtoBeneficiary(grant)}, nil
}

// RemoveBeneficiary handles the RemoveBeneficiary RPC
func (s *Server) RemoveBeneficiary(ctx context.Context, req *RemoveBeneficiaryRequest) (*RemoveBeneficiaryResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	removed, err := s.DisbursementService.RemoveBeneficiary(ctx, caller, req.BeneficiaryID)
	if err != nil {
		return nil, mapError(err)
	}

	return &RemoveBeneficiaryResponse{Removed: removed}, nil
}

// DisburseFunds handles the DisburseFunds RPC
func (s *Server) DisburseFunds(ctx context.Context, req *DisburseFundsRequest) (*BeneficiaryResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	var paid *domain.Beneficiary
	if strings.TrimSpace(req.Owner) == "" {
		paid, err = s.DisbursementService.DisburseFunds(ctx, caller, req.BeneficiaryID)
	} else {
		owner, parseErr := parseAddress("owner", req.Owner)
		if parseErr != nil {
			return nil, parseErr
		}
		paid, err = s.DisbursementService.DisburseFundsFrom(ctx, caller, owner, req.BeneficiaryID)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return &BeneficiaryResponse{Beneficiary: toProtoBeneficiary(paid)}, nil
}

// RefundTrust handles the RefundTrust RPC
func (s *Server) RefundTrust(ctx context.Context, req *RefundTrustRequest) (*BeneficiaryResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	disbursementID, err := uuid.Parse(req.DisbursementID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid disbursement_id format: %v", err)
	}

	refunded, err := s.DisbursementService.RefundTrust(ctx, caller, disbursementID)
	if err != nil {
		return nil, mapError(err)
	}

	return &BeneficiaryResponse{Beneficiary: toProtoBeneficiary(refunded)}, nil
}

// GetBeneficiary handles the GetBeneficiary RPC
func (s *Server) GetBeneficiary(ctx context.Context, req *GetBeneficiaryRequest) (*BeneficiaryResponse, error) {
	grant, err := s.DisbursementService.GetBeneficiary(ctx, req.BeneficiaryID)
	if err != nil {
		return nil, mapError(err)
	}
	return &BeneficiaryResponse{Beneficiary: toProtoBeneficiary(grant)}, nil
}

// GetBeneficiaryByDisbursement handles the GetBeneficiaryByDisbursement RPC
func (s *Server) GetBeneficiaryByDisbursement(ctx context.Context, req *GetBeneficiaryByDisbursementRequest) (*BeneficiaryResponse, error) {
	disbursementID, err := uuid.Parse(req.DisbursementID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid disbursement_id format: %v", err)
	}

	grant, err := s.DisbursementService.GetBeneficiaryByDisbursement(ctx, disbursementID)
	if err != nil {
		return nil, mapError(err)
	}
	return &BeneficiaryResponse{Beneficiary: toProtoBeneficiary(grant)}, nil
}

// GetBeneficiaryAtIndex handles the GetBeneficiaryAtIndex RPC
func (s *Server) GetBeneficiaryAtIndex(ctx context.Context, req *GetBeneficiaryAtIndexRequest) (*BeneficiaryResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	grant, err := s.DisbursementService.GetBeneficiaryAtIndex(ctx, owner, req.Index)
	if err != nil {
		return nil, mapError(err)
	}
	return &BeneficiaryResponse{Beneficiary: toProtoBeneficiary(grant)}, nil
}

// GetBeneficiaryID handles the GetBeneficiaryID RPC
func (s *Server) GetBeneficiaryID(ctx context.Context, req *GetBeneficiaryIDRequest) (*GetBeneficiaryIDResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	address, err := parseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}

	id, err := s.DisbursementService.GetBeneficiaryID(ctx, owner, address)
	if err != nil {
		return nil, mapError(err)
	}
	return &GetBeneficiaryIDResponse{BeneficiaryID: id}, nil
}

// GetBeneficiaryCount handles the GetBeneficiaryCount RPC
func (s *Server) GetBeneficiaryCount(ctx context.Context, req *OwnerRequest) (*CountResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: s.DisbursementService.GetBeneficiaryCount(ctx, owner)}, nil
}

// GetDisbursementCount handles the GetDisbursementCount RPC
func (s *Server) GetDisbursementCount(ctx context.Context, req *AddressRequest) (*CountResponse, error) {
	address, err := parseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: s.DisbursementService.GetDisbursementCount(ctx, address)}, nil
}

// GetExternalBalance handles the GetExternalBalance RPC
func (s *Server) GetExternalBalance(ctx context.Context, req *AddressRequest) (*ExternalBalanceResponse, error) {
	address, err := parseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}

	balance, exists := s.Accounts.BalanceOf(ctx, address)
	return &ExternalBalanceResponse{
		Address: address.String(),
		Balance: balance.String(),
		Exists:  exists,
	}, nil
}

// GetBeneficiaryBalance handles the GetBeneficiaryBalance RPC
func (s *Server) GetBeneficiaryBalance(ctx context.Context, req *OwnerRequest) (*TrustBalanceResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	return &TrustBalanceResponse{
		Owner:   owner.String(),
		Balance: s.DisbursementService.GetBeneficiaryBalance(ctx, owner).String(),
	}, nil
}

// ReadyToDisburse handles the ReadyToDisburse RPC
func (s *Server) ReadyToDisburse(ctx context.Context, req *GetBeneficiaryRequest) (*ReadyToDisburseResponse, error) {
	ready, err := s.DisbursementService.ReadyToDisburse(ctx, req.BeneficiaryID)
	if err != nil {
		return nil, mapError(err)
	}
	return &ReadyToDisburseResponse{Ready: ready}, nil
}

// ListBeneficiaries handles the ListBeneficiaries RPC
func (s *Server) ListBeneficiaries(ctx context.Context, req *OwnerRequest) (*ListBeneficiariesResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	grants := s.DisbursementService.ListBeneficiaries(ctx, owner)
	resp := &ListBeneficiariesResponse{Beneficiaries: make([]*Beneficiary, 0, len(grants))}
	for i := range grants {
		resp.Beneficiaries = append(resp.Beneficiaries, toProtoBeneficiary(&grants[i]))
	}
	return resp, nil
}

// GetInfo handles the GetInfo RPC
func (s *Server) GetInfo(ctx context.Context, _ *GetInfoRequest) (*InfoResponse, error) {
	info := s.RegistryService.GetInfo(ctx)
	return &InfoResponse{Name: info.Name, Admin: info.Admin.String()}, nil
}

// SetName handles the SetName RPC
func (s *Server) SetName(ctx context.Context, req *SetNameRequest) (*InfoResponse, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.RegistryService.SetName(ctx, caller, req.Name); err != nil {
		return nil, mapError(err)
	}

	return s.GetInfo(ctx, &GetInfoRequest{})
}

// GetTrustSummary handles the GetTrustSummary RPC
func (s *Server) GetTrustSummary(ctx context.Context, req *OwnerRequest) (*TrustSummaryResponse, error) {
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	summary, err := s.ReportService.GetTrustSummary(ctx, owner)
	if err != nil {
		return nil, mapError(err)
	}

	return &TrustSummaryResponse{
		Owner:         summary.Owner.String(),
		Balance:       summary.Balance.String(),
		Reserved:      summary.Reserved.String(),
		ActiveGrants:  summary.ActiveGrants,
		MaturedGrants: summary.MaturedGrants,
		Contributed:   summary.Contributed.String(),
		Withdrawn:     summary.Withdrawn.String(),
		Disbursed:     summary.Disbursed.String(),
	}, nil
}

func (s *Server) balanceResponse(ctx context.Context, owner domain.Address) *TrustBalanceResponse {
	return &TrustBalanceResponse{
		Owner:   owner.String(),
		Balance: s.TrustService.BalanceOf(ctx, owner).String(),
	}
}

// requireCaller returns the caller attached by CallerInterceptor
func requireCaller(ctx context.Context) (domain.Address, error) {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "missing %s header", CallerHeader)
	}
	return caller, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid amount format: %v", err)
	}
	return amount, nil
}

func parseAddress(field, raw string) (domain.Address, error) {
	address, err := domain.NewAddress(raw)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return address, nil
}

// toProtoBeneficiary converts a domain Beneficiary to its wire form
func toProtoBeneficiary(grant *domain.Beneficiary) *Beneficiary {
	return &Beneficiary{
		BeneficiaryID:  grant.ID,
		DisbursementID: grant.DisbursementID.String(),
		TrustOwner:     grant.TrustOwner.String(),
		Address:        grant.Address.String(),
		Amount:         grant.Amount.String(),
		CancelAllowed:  grant.CancelAllowed,
		Complete:       grant.Complete,
		Status:         string(grant.Status),
		CreatedAt:      timestamppb.New(grant.CreatedAt),
		DisburseAt:     timestamppb.New(grant.DisburseAt),
	}
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTrustNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Errorf(codes.PermissionDenied, "%s", errorMsg)
	case errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientReserve),
		errors.Is(err, wallet.ErrInsufficientFunds):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidDelay):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrDuplicateBeneficiary):
		return status.Errorf(codes.AlreadyExists, "%s", errorMsg)
	case errors.Is(err, domain.ErrTransferFailed):
		return status.Errorf(codes.Aborted, "%s", errorMsg)
	}

	// Unclassified validation messages
	if strings.Contains(errorMsg, "cannot be empty") || strings.Contains(errorMsg, "invalid") {
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
