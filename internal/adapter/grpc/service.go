package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified name of the disburse service
const ServiceName = "disburse.v1.DisburseService"

// DisburseServiceServer is the server API of the disburse service
type DisburseServiceServer interface {
	Contribute(context.Context, *ContributeRequest) (*TrustBalanceResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*TrustBalanceResponse, error)
	WithdrawAll(context.Context, *WithdrawAllRequest) (*WithdrawAllResponse, error)
	GetTrustBalance(context.Context, *GetTrustBalanceRequest) (*TrustBalanceResponse, error)

	AddBeneficiary(context.Context, *AddBeneficiaryRequest) (*BeneficiaryResponse, error)
	RemoveBeneficiary(context.Context, *RemoveBeneficiaryRequest) (*RemoveBeneficiaryResponse, error)
	DisburseFunds(context.Context, *DisburseFundsRequest) (*BeneficiaryResponse, error)
	RefundTrust(context.Context, *RefundTrustRequest) (*BeneficiaryResponse, error)

	GetBeneficiary(context.Context, *GetBeneficiaryRequest) (*BeneficiaryResponse, error)
	GetBeneficiaryByDisbursement(context.Context, *GetBeneficiaryByDisbursementRequest) (*BeneficiaryResponse, error)
	GetBeneficiaryAtIndex(context.Context, *GetBeneficiaryAtIndexRequest) (*BeneficiaryResponse, error)
	GetBeneficiaryID(context.Context, *GetBeneficiaryIDRequest) (*GetBeneficiaryIDResponse, error)
	GetBeneficiaryCount(context.Context, *OwnerRequest) (*CountResponse, error)
	GetDisbursementCount(context.Context, *AddressRequest) (*CountResponse, error)
	GetBeneficiaryBalance(context.Context, *OwnerRequest) (*TrustBalanceResponse, error)
	ReadyToDisburse(context.Context, *GetBeneficiaryRequest) (*ReadyToDisburseResponse, error)
	ListBeneficiaries(context.Context, *OwnerRequest) (*ListBeneficiariesResponse, error)

	GetInfo(context.Context, *GetInfoRequest) (*InfoResponse, error)
	SetName(context.Context, *SetNameRequest) (*InfoResponse, error)
	GetTrustSummary(context.Context, *OwnerRequest) (*TrustSummaryResponse, error)
	GetExternalBalance(context.Context, *AddressRequest) (*ExternalBalanceResponse, error)
}

// DisburseServiceDesc describes the service for grpc.Server.RegisterService
var DisburseServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DisburseServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Contribute", DisburseServiceServer.Contribute),
		unary("Withdraw", DisburseServiceServer.Withdraw),
		unary("WithdrawAll", DisburseServiceServer.WithdrawAll),
		unary("GetTrustBalance", DisburseServiceServer.GetTrustBalance),
		unary("AddBeneficiary", DisburseServiceServer.AddBeneficiary),
		unary("RemoveBeneficiary", DisburseServiceServer.RemoveBeneficiary),
		unary("DisburseFunds", DisburseServiceServer.DisburseFunds),
		unary("RefundTrust", DisburseServiceServer.RefundTrust),
		unary("GetBeneficiary", DisburseServiceServer.GetBeneficiary),
		unary("GetBeneficiaryByDisbursement", DisburseServiceServer.GetBeneficiaryByDisbursement),
		unary("GetBeneficiaryAtIndex", DisburseServiceServer.GetBeneficiaryAtIndex),
		unary("GetBeneficiaryID", DisburseServiceServer.GetBeneficiaryID),
		unary("GetBeneficiaryCount", DisburseServiceServer.GetBeneficiaryCount),
		unary("GetDisbursementCount", DisburseServiceServer.GetDisbursementCount),
		unary("GetBeneficiaryBalance", DisburseServiceServer.GetBeneficiaryBalance),
		unary("ReadyToDisburse", DisburseServiceServer.ReadyToDisburse),
		unary("ListBeneficiaries", DisburseServiceServer.ListBeneficiaries),
		unary("GetInfo", DisburseServiceServer.GetInfo),
		unary("SetName", DisburseServiceServer.SetName),
		unary("GetTrustSummary", DisburseServiceServer.GetTrustSummary),
		unary("GetExternalBalance", DisburseServiceServer.GetExternalBalance),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterDisburseServiceServer registers srv on s
func RegisterDisburseServiceServer(s grpc.ServiceRegistrar, srv DisburseServiceServer) {
	s.RegisterService(&DisburseServiceDesc, srv)
}

// FullMethod returns the "/service/method" path of a method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the descriptor of a unary method from its interface method expression
func unary[Req any, Resp any](
	name string,
	call func(DisburseServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DisburseServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DisburseServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
