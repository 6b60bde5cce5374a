package xlock_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xlockkit/pkg/context/xpeer"
	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
)

// =============================================================================
// HTTP
// =============================================================================

func TestHTTPMiddleware(t *testing.T) {
	mr, g := setupGuard(t)
	spec := xlock.NewLockSpec("submit:{@ip}:{form}", xlock.TryLock(0, -1), xlock.WithFailureMessage("duplicate submit"))

	served := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		served++
		assert.True(t, mr.Exists("lock:submit:203.0.113.7:f1"))
		w.WriteHeader(http.StatusCreated)
	})
	h := xpeer.HTTPMiddleware()(xlock.HTTPMiddleware(g, spec, nil)(next))

	r := httptest.NewRequest(http.MethodPost, "/submit?form=f1", nil)
	r.RemoteAddr = "203.0.113.7:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, served)
	assert.False(t, mr.Exists("lock:submit:203.0.113.7:f1"))
}

func TestHTTPMiddleware_Contention(t *testing.T) {
	_, g := setupGuard(t)
	spec := xlock.NewLockSpec("submit:{id}", xlock.TryLock(0, -1), xlock.WithFailureMessage("duplicate submit"))
	release := holdInBackground(t, g, spec, xlock.Arg("id", "9"))
	defer release()

	params := func(r *http.Request) []xlock.Param {
		return []xlock.Param{xlock.Arg("id", r.Header.Get("X-Order-ID"))}
	}
	h := xlock.HTTPMiddleware(g, spec, params)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("X-Order-ID", "9")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate submit")
}

func TestHTTPMiddleware_Errors(t *testing.T) {
	_, g := setupGuard(t)
	h := xlock.HTTPMiddleware(g, xlock.NewLockSpec("k", xlock.WithLease(-9)), nil)(http.NotFoundHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "lease")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, xlock.HTTPStatus(&xlock.LockError{Status: xlock.StatusContention}))
	assert.Equal(t, http.StatusInternalServerError, xlock.HTTPStatus(&xlock.LockError{Status: xlock.StatusAcquire}))
	assert.Equal(t, http.StatusInternalServerError, xlock.HTTPStatus(errors.New("x")))
}

// =============================================================================
// gRPC
// =============================================================================

type payRequest struct {
	OrderID string
}

func TestUnaryServerInterceptor(t *testing.T) {
	mr, g := setupGuard(t)
	const method = "/order.v1.OrderService/Pay"
	spec := xlock.NewLockSpec("pay:{orderId}", xlock.TryLock(0, -1), xlock.WithFailureMessage("paying"))
	interceptor := xlock.UnaryServerInterceptor(g, map[string]xlock.LockSpec{method: spec})
	info := &grpc.UnaryServerInfo{FullMethod: method}
	req := &payRequest{OrderID: "o-1"}

	resp, err := interceptor(context.Background(), req, info, func(context.Context, any) (any, error) {
		assert.True(t, mr.Exists("lock:pay:o-1"))
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.False(t, mr.Exists("lock:pay:o-1"))

	t.Run("未配置的方法直接放行", func(t *testing.T) {
		resp, err := interceptor(context.Background(), req, &grpc.UnaryServerInfo{FullMethod: "/other"},
			func(context.Context, any) (any, error) { return "pass", nil })
		require.NoError(t, err)
		assert.Equal(t, "pass", resp)
	})

	t.Run("handler错误原样返回", func(t *testing.T) {
		herr := status.Error(codes.InvalidArgument, "bad amount")
		_, err := interceptor(context.Background(), req, info,
			func(context.Context, any) (any, error) { return nil, herr })
		assert.Equal(t, herr, err)
	})

	t.Run("竞争失败", func(t *testing.T) {
		release := holdInBackground(t, g, spec, xlock.Arg("req", req))
		defer release()

		_, err := interceptor(context.Background(), req, info, func(context.Context, any) (any, error) {
			t.Error("handler must not run")
			return nil, nil
		})
		st, ok := status.FromError(err)
		require.True(t, ok)
		assert.Equal(t, codes.ResourceExhausted, st.Code())
		assert.Equal(t, "paying", st.Message())
	})
}

func TestUnaryServerInterceptor_ReleaseFailure(t *testing.T) {
	const method = "/order.v1.OrderService/Pay"
	spec := xlock.NewLockSpec("pay:{orderId}")
	req := &payRequest{OrderID: "o-2"}
	info := &grpc.UnaryServerInfo{FullMethod: method}

	t.Run("保留handler的status", func(t *testing.T) {
		p, l, g := newMockGuard(t)
		p.EXPECT().Reentrant("lock:pay:o-2").Return(l)
		l.EXPECT().Lock(gomock.Any(), gomock.Any()).Return(nil)
		l.EXPECT().Unlock(gomock.Any()).Return(errors.New("connection reset"))

		herr := status.Error(codes.NotFound, "order not found")
		interceptor := xlock.UnaryServerInterceptor(g, map[string]xlock.LockSpec{method: spec})
		_, err := interceptor(context.Background(), req, info,
			func(context.Context, any) (any, error) { return nil, herr })

		assert.Equal(t, herr, err)
		st, ok := status.FromError(err)
		require.True(t, ok)
		assert.Equal(t, codes.NotFound, st.Code())
		assert.Equal(t, "order not found", st.Message())
	})

	t.Run("handler成功时返回Internal", func(t *testing.T) {
		p, l, g := newMockGuard(t)
		p.EXPECT().Reentrant("lock:pay:o-2").Return(l)
		l.EXPECT().Lock(gomock.Any(), gomock.Any()).Return(nil)
		l.EXPECT().Unlock(gomock.Any()).Return(errors.New("connection reset"))

		interceptor := xlock.UnaryServerInterceptor(g, map[string]xlock.LockSpec{method: spec})
		_, err := interceptor(context.Background(), req, info,
			func(context.Context, any) (any, error) { return "ok", nil })

		st, ok := status.FromError(err)
		require.True(t, ok)
		assert.Equal(t, codes.Internal, st.Code())
		assert.Contains(t, st.Message(), "connection reset")
	})
}

func TestGRPCCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{&xlock.LockError{Status: xlock.StatusContention}, codes.ResourceExhausted},
		{&xlock.LockError{Status: xlock.StatusInvalidSpec}, codes.FailedPrecondition},
		{&xlock.LockError{Status: xlock.StatusProviderUnavailable}, codes.Unavailable},
		{&xlock.LockError{Status: xlock.StatusKeyResolution}, codes.Internal},
		{&xlock.LockError{Status: xlock.StatusRelease}, codes.Internal},
		{&xlock.LockError{Status: xlock.StatusAcquire, Err: context.DeadlineExceeded}, codes.DeadlineExceeded},
		{&xlock.LockError{Status: xlock.StatusAcquire, Err: context.Canceled}, codes.Canceled},
		{errors.New("x"), codes.Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, xlock.GRPCCode(tt.err), "%v", tt.err)
	}
}
