package xlock

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCCode 将锁错误映射为 gRPC 状态码。
func GRPCCode(err error) codes.Code {
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	s, ok := StatusOf(err)
	if !ok {
		return codes.Unknown
	}
	switch s {
	case StatusContention:
		return codes.ResourceExhausted
	case StatusInvalidSpec:
		return codes.FailedPrecondition
	case StatusProviderUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// UnaryServerInterceptor 返回按方法加锁的 gRPC 一元拦截器。
//
// specs 以 FullMethod（如 "/order.v1.OrderService/Pay"）为 key，未列出的方法直接放行。
// 请求消息以参数名 "req" 参与绑定，且是唯一参数，因此 {orderId} 读取 req 的 orderId 字段。
// handler 返回的错误原样传出，锁错误转换为 gRPC status。
// 释放失败且 handler 返回了 gRPC status 时，保留 handler 的 status。
func UnaryServerInterceptor(g *Guard, specs map[string]LockSpec) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		spec, ok := specs[info.FullMethod]
		if !ok {
			return handler(ctx, req)
		}

		var resp any
		err := g.Run(ctx, spec, NewCallContext(ctx, Arg("req", req)), func(ctx context.Context) error {
			var herr error
			resp, herr = handler(ctx, req)
			return herr
		})
		if err == nil || !isLockError(err) {
			return resp, err
		}
		// handler 已返回 gRPC 状态时以它为准，释放失败已由 Guard 记录
		if herr := handlerStatus(err); herr != nil {
			return nil, herr
		}
		return nil, status.Error(GRPCCode(err), lockErrorMessage(err))
	}
}

// grpcStatusError 与 status.FromError 识别的接口一致
type grpcStatusError interface {
	error
	GRPCStatus() *status.Status
}

// handlerStatus 从释放失败的错误链中取出 handler 返回的 gRPC 状态错误，没有时返回 nil
func handlerStatus(err error) error {
	if s, _ := StatusOf(err); s != StatusRelease {
		return nil
	}
	var se grpcStatusError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

func isLockError(err error) bool {
	_, ok := StatusOf(err)
	return ok
}

// lockErrorMessage 竞争失败返回 FailureMessage，其余返回完整错误
func lockErrorMessage(err error) string {
	var le *LockError
	if errors.As(err, &le) && le.Status == StatusContention {
		return le.Msg
	}
	return err.Error()
}
