package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/simaogato/disburse-backend/internal/adapter/metrics"
	"github.com/simaogato/disburse-backend/internal/domain"
)

type callerKey struct{}

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
// If valid, it calls the handler with the original context.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get(AuthorizationHeader)
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// CallerInterceptor reads the caller address from request metadata and attaches it
// to the context. A call without the header proceeds anonymously; handlers that
// need a caller reject it.
//
// The address is asserted by the client and is not authenticated. AuthInterceptor
// must run first: any holder of the shared API token can act as any account, so the
// token may only be given to trusted frontends that authenticate their own users.
// A repeated header counts once; the first value wins.
func CallerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		values := md.Get(CallerHeader)
		if len(values) == 0 {
			return handler(ctx, req)
		}

		caller, err := domain.NewAddress(values[0])
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid caller address: %v", err)
		}

		return handler(context.WithValue(ctx, callerKey{}, caller), req)
	}
}

// CallerFrom returns the caller attached by CallerInterceptor
func CallerFrom(ctx context.Context) (domain.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(domain.Address)
	return caller, ok
}

// RateLimitInterceptor rejects calls beyond the per-caller rate with ResourceExhausted.
// Anonymous calls are keyed by peer address. m may be nil.
func RateLimitInterceptor(limiter *CallerLimiter, m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !limiter.Allow(rateLimitKey(ctx), time.Now()) {
			if m != nil {
				m.RateLimited.WithLabelValues(info.FullMethod).Inc()
			}
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func rateLimitKey(ctx context.Context) string {
	if caller, ok := CallerFrom(ctx); ok {
		return "caller:" + caller.String()
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "peer:unknown"
}

// MetricsInterceptor counts calls by method and status code and observes their latency
func MetricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		m.RequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		m.RequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// LoggingInterceptor logs every call with its outcome
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		caller, _ := CallerFrom(ctx)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("caller", caller.String()),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if status.Code(err) == codes.Internal {
			logger.Error("call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("call handled", fields...)
		}
		return resp, err
	}
}
