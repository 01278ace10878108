package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/disburse-backend/internal/adapter/metrics"
	"github.com/simaogato/disburse-backend/internal/domain"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/disburse.v1.DisburseService/Contribute"}

func TestAuthInterceptor(t *testing.T) {
	validToken := "test-token-123"
	interceptor := AuthInterceptor(validToken)

	tests := []struct {
		name           string
		ctx            context.Context
		handlerCalled  bool
		expectedCode   codes.Code
		expectedErrMsg string
	}{
		{
			name: "Valid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", validToken),
			),
			handlerCalled:  true,
			expectedCode:   codes.OK,
			expectedErrMsg: "",
		},
		{
			name: "Invalid Token",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("authorization", "wrong-token"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "invalid token",
		},
		{
			name:           "Missing Token",
			ctx:            context.Background(),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing metadata",
		},
		{
			name: "Missing Authorization Header",
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.Pairs("x-caller-address", "0xowner"),
			),
			handlerCalled:  false,
			expectedCode:   codes.Unauthenticated,
			expectedErrMsg: "missing authorization header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCalled = true
				return "success", nil
			}

			resp, err := interceptor(tt.ctx, "test-request", testInfo, handler)

			assert.Equal(t, tt.handlerCalled, handlerCalled, "handler called status mismatch")

			if tt.expectedCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "success", resp)
			} else {
				assert.Error(t, err)
				st, ok := status.FromError(err)
				assert.True(t, ok, "error should be a gRPC status")
				assert.Equal(t, tt.expectedCode, st.Code())
				assert.Contains(t, st.Message(), tt.expectedErrMsg)
			}
		})
	}
}

func TestCallerInterceptor(t *testing.T) {
	interceptor := CallerInterceptor()

	tests := []struct {
		name         string
		ctx          context.Context
		wantCaller   domain.Address
		wantAttached bool
		expectedCode codes.Code
	}{
		{
			name:         "caller attached",
			ctx:          metadata.NewIncomingContext(context.Background(), metadata.Pairs(CallerHeader, " 0xowner ")),
			wantCaller:   "0xowner",
			wantAttached: true,
			expectedCode: codes.OK,
		},
		{
			name:         "repeated header takes the first value",
			ctx:          metadata.NewIncomingContext(context.Background(), metadata.Pairs(CallerHeader, "0xfirst", CallerHeader, "0xsecond")),
			wantCaller:   "0xfirst",
			wantAttached: true,
			expectedCode: codes.OK,
		},
		{
			name:         "no metadata is anonymous",
			ctx:          context.Background(),
			expectedCode: codes.OK,
		},
		{
			name:         "no header is anonymous",
			ctx:          metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "t")),
			expectedCode: codes.OK,
		},
		{
			name:         "blank caller rejected",
			ctx:          metadata.NewIncomingContext(context.Background(), metadata.Pairs(CallerHeader, "  ")),
			expectedCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen domain.Address
			var attached bool
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				seen, attached = CallerFrom(ctx)
				return "ok", nil
			}

			_, err := interceptor(tt.ctx, "req", testInfo, handler)

			assert.Equal(t, tt.expectedCode, status.Code(err))
			assert.Equal(t, tt.wantAttached, attached)
			assert.Equal(t, tt.wantCaller, seen)
		})
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	m := metrics.New()
	interceptor := RateLimitInterceptor(NewCallerLimiter(0.001, 2, time.Minute), m)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	alice := context.WithValue(context.Background(), callerKey{}, domain.Address("0xalice"))
	bob := context.WithValue(context.Background(), callerKey{}, domain.Address("0xbob"))

	for i := 0; i < 2; i++ {
		_, err := interceptor(alice, "req", testInfo, handler)
		require.NoError(t, err)
	}

	_, err := interceptor(alice, "req", testInfo, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = interceptor(bob, "req", testInfo, handler)
	assert.NoError(t, err, "limits are per caller")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues(testInfo.FullMethod)))
}

func TestRateLimitInterceptor_NilLimiterAllowsAll(t *testing.T) {
	interceptor := RateLimitInterceptor(nil, nil)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	for i := 0; i < 100; i++ {
		_, err := interceptor(context.Background(), "req", testInfo, handler)
		require.NoError(t, err)
	}
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.New()
	interceptor := MetricsInterceptor(m)

	_, err := interceptor(context.Background(), "req", testInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)

	_, err = interceptor(context.Background(), "req", testInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(testInfo.FullMethod, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(testInfo.FullMethod, "NotFound")))
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor(zap.NewNop())

	resp, err := interceptor(context.Background(), "req", testInfo, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestCallerLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("invalid args disable limiting", func(t *testing.T) {
		assert.Nil(t, NewCallerLimiter(0, 1, 0))
		assert.Nil(t, NewCallerLimiter(1, 0, 0))
		var l *CallerLimiter
		assert.True(t, l.Allow("anyone", now))
	})

	t.Run("blank key is never limited", func(t *testing.T) {
		l := NewCallerLimiter(1, 1, time.Minute)
		for i := 0; i < 5; i++ {
			assert.True(t, l.Allow("  ", now))
		}
		assert.Equal(t, 0, l.tracked())
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		l := NewCallerLimiter(1, 1, time.Minute)
		assert.True(t, l.Allow("k", now))
		assert.False(t, l.Allow("k", now))
		assert.True(t, l.Allow("k", now.Add(time.Second)))
	})

	t.Run("idle callers are dropped and start over", func(t *testing.T) {
		l := NewCallerLimiter(0.001, 1, time.Minute)
		assert.True(t, l.Allow("idle", now))
		assert.False(t, l.Allow("idle", now))
		assert.True(t, l.Allow("busy", now.Add(30*time.Second)))
		assert.Equal(t, 2, l.tracked(), "nothing is dropped before the ttl elapses")

		later := now.Add(90 * time.Second)
		assert.False(t, l.Allow("busy", later), "busy caller keeps its drained bucket")
		assert.Equal(t, 1, l.tracked())
		assert.True(t, l.Allow("idle", later), "idle caller gets a fresh burst")
	})
}
