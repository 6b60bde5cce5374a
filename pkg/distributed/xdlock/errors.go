package xdlock

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// 预定义错误。
// 使用 errors.Is 进行错误匹配，例如：
//
//	if errors.Is(err, xdlock.ErrProviderUnavailable) {
//	    // 后端不可用
//	}
var (
	// ErrNotLocked 锁未被当前持有者持有。
	// 释放已过期、已被抢走或从未获取的锁时返回此错误。
	ErrNotLocked = errors.New("xdlock: not locked")

	// ErrEmptyKey 锁 key 为空。
	ErrEmptyKey = errors.New("xdlock: key must not be empty")

	// ErrNilClient 客户端为空。
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrNilContext context 为空。
	ErrNilContext = errors.New("xdlock: context is nil")

	// ErrProviderUnavailable 后端不可用。
	// Provider 已关闭或熔断器处于打开状态时返回此错误。
	ErrProviderUnavailable = errors.New("xdlock: provider unavailable")

	// ErrUnsupported 当前后端不支持该锁类型。
	ErrUnsupported = errors.New("xdlock: lock type not supported by provider")
)

// errNotAcquired 等待循环内部使用，表示本轮未抢到锁
var errNotAcquired = errors.New("xdlock: not acquired")

// wrapBackendError 统一后端错误。
// 熔断器拒绝的请求归为 ErrProviderUnavailable，context 错误保持原样。
func wrapBackendError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return err
}
