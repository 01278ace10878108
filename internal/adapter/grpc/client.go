package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	// AuthorizationHeader carries the shared API token
	AuthorizationHeader = "authorization"
	// CallerHeader carries the address of the account making the call
	CallerHeader = "x-caller-address"
)

// Client is a typed client of the disburse service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client instance
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithCredentials returns ctx carrying the API token and, if set, the caller address
func WithCredentials(ctx context.Context, token, caller string) context.Context {
	pairs := []string{AuthorizationHeader, token}
	if caller != "" {
		pairs = append(pairs, CallerHeader, caller)
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Contribute(ctx context.Context, in *ContributeRequest, opts ...grpc.CallOption) (*TrustBalanceResponse, error) {
	return invoke[TrustBalanceResponse](ctx, c.cc, "Contribute", in, opts)
}

func (c *Client) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*TrustBalanceResponse, error) {
	return invoke[TrustBalanceResponse](ctx, c.cc, "Withdraw", in, opts)
}

func (c *Client) WithdrawAll(ctx context.Context, in *WithdrawAllRequest, opts ...grpc.CallOption) (*WithdrawAllResponse, error) {
	return invoke[WithdrawAllResponse](ctx, c.cc, "WithdrawAll", in, opts)
}

func (c *Client) GetTrustBalance(ctx context.Context, in *GetTrustBalanceRequest, opts ...grpc.CallOption) (*TrustBalanceResponse, error) {
	return invoke[TrustBalanceResponse](ctx, c.cc, "GetTrustBalance", in, opts)
}

func (c *Client) AddBeneficiary(ctx context.Context, in *AddBeneficiaryRequest, opts ...grpc.CallOption) (*BeneficiaryResponse, error) {
	return invoke[BeneficiaryResponse](ctx, c.cc, "AddBeneficiary", in, opts)
}

func (c *Client) RemoveBeneficiary(ctx context.Context, in *RemoveBeneficiaryRequest, opts ...grpc.CallOption) (*RemoveBeneficiaryResponse, error) {
	return invoke[RemoveBeneficiaryResponse](ctx, c.cc, "RemoveBeneficiary", in, opts)
}

func (c *Client) DisburseFunds(ctx context.Context, in *DisburseFundsRequest, opts ...grpc.CallOption) (*BeneficiaryResponse, error) {
	return invoke[BeneficiaryResponse](ctx, c.cc, "DisburseFunds", in, opts)
}

func (c *Client) RefundTrust(ctx context.Context, in *RefundTrustRequest, opts ...grpc.CallOption) (*BeneficiaryResponse, error) {
	return invoke[BeneficiaryResponse](ctx, c.cc, "RefundTrust", in, opts)
}

func (c *Client) GetBeneficiary(ctx context.Context, in *GetBeneficiaryRequest, opts ...grpc.CallOption) (*BeneficiaryResponse, error) {
	return invoke[BeneficiaryResponse](ctx, c.cc, "GetBeneficiary", in, opts)
}

func (c *Client) GetBeneficiaryByDisbursement(ctx context.Context, in *GetBeneficiaryByDisbursementRequest, opts ...grpc.CallOption) (*BeneficiaryResponse, error) {
	return invoke[BeneficiaryResponse](ctx, c.cc, "GetBeneficiaryByDisbursement", in, opts)
}

func (c *Client) GetBeneficiaryAtIndex(ctx context.Context, in *GetBeneficiaryAtIndexRequest, opts ...grpc.CallOption) (*BeneficiaryResponse, error) {
	return invoke[BeneficiaryResponse](ctx, c.cc, "GetBeneficiaryAtIndex", in, opts)
}

func (c *Client) GetBeneficiaryID(ctx context.Context, in *GetBeneficiaryIDRequest, opts ...grpc.CallOption) (*GetBeneficiaryIDResponse, error) {
	return invoke[GetBeneficiaryIDResponse](ctx, c.cc, "GetBeneficiaryID", in, opts)
}

func (c *Client) GetBeneficiaryCount(ctx context.Context, in *OwnerRequest, opts ...grpc.CallOption) (*CountResponse, error) {
	return invoke[CountResponse](ctx, c.cc, "GetBeneficiaryCount", in, opts)
}

func (c *Client) GetDisbursementCount(ctx context.Context, in *AddressRequest, opts ...grpc.CallOption) (*CountResponse, error) {
	return invoke[CountResponse](ctx, c.cc, "GetDisbursementCount", in, opts)
}

func (c *Client) GetBeneficiaryBalance(ctx context.Context, in *OwnerRequest, opts ...grpc.CallOption) (*TrustBalanceResponse, error) {
	return invoke[TrustBalanceResponse](ctx, c.cc, "GetBeneficiaryBalance", in, opts)
}

func (c *Client) ReadyToDisburse(ctx context.Context, in *GetBeneficiaryRequest, opts ...grpc.CallOption) (*ReadyToDisburseResponse, error) {
	return invoke[ReadyToDisburseResponse](ctx, c.cc, "ReadyToDisburse", in, opts)
}

func (c *Client) ListBeneficiaries(ctx context.Context, in *OwnerRequest, opts ...grpc.CallOption) (*ListBeneficiariesResponse, error) {
	return invoke[ListBeneficiariesResponse](ctx, c.cc, "ListBeneficiaries", in, opts)
}

func (c *Client) GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*InfoResponse, error) {
	return invoke[InfoResponse](ctx, c.cc, "GetInfo", in, opts)
}

func (c *Client) SetName(ctx context.Context, in *SetNameRequest, opts ...grpc.CallOption) (*InfoResponse, error) {
	return invoke[InfoResponse](ctx, c.cc, "SetName", in, opts)
}

func (c *Client) GetTrustSummary(ctx context.Context, in *OwnerRequest, opts ...grpc.CallOption) (*TrustSummaryResponse, error) {
	return invoke[TrustSummaryResponse](ctx, c.cc, "GetTrustSummary", in, opts)
}

func (c *Client) GetExternalBalance(ctx context.Context, in *AddressRequest, opts ...grpc.CallOption) (*ExternalBalanceResponse, error) {
	return invoke[ExternalBalanceResponse](ctx, c.cc, "GetExternalBalance", in, opts)
}
