package xlock

import (
	"errors"
	"fmt"
	"strconv"
)

// Status 锁错误状态码。
type Status int

// 状态码取值固定，调用方可能按数值判断。
const (
	// StatusInvalidSpec 锁声明非法（lease < -1 或 wait < 0），属于配置错误，不应重试。
	StatusInvalidSpec Status = 0
	// StatusProviderUnavailable 未配置锁提供者或提供者不可用。
	StatusProviderUnavailable Status = 1
	// StatusKeyResolution 锁 key 解析失败。
	StatusKeyResolution Status = 2
	// StatusAcquire 获取锁失败（后端错误、等待被取消）。
	StatusAcquire Status = 3
	// StatusRelease 释放锁失败。
	StatusRelease Status = 4
	// StatusContention 尝试获取锁时锁被占用，是唯一预期内的业务失败。
	StatusContention Status = 5
)

// String 返回状态码名称。
func (s Status) String() string {
	switch s {
	case StatusInvalidSpec:
		return "invalid_spec"
	case StatusProviderUnavailable:
		return "provider_unavailable"
	case StatusKeyResolution:
		return "key_resolution"
	case StatusAcquire:
		return "acquire"
	case StatusRelease:
		return "release"
	case StatusContention:
		return "contention"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// LockError 带状态码的锁错误，Err 为底层原因（可能为 nil）。
type LockError struct {
	Status Status
	Msg    string
	Err    error
}

func (e *LockError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("xlock: %s (status=%d)", e.Msg, e.Status)
	}
	return fmt.Sprintf("xlock: %s (status=%d): %v", e.Msg, e.Status, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// newError 创建锁错误
func newError(status Status, msg string, cause error) *LockError {
	return &LockError{Status: status, Msg: msg, Err: cause}
}

// StatusOf 提取错误链中的锁状态码。
// 错误链中没有 *LockError 时返回 false。
func StatusOf(err error) (Status, bool) {
	var le *LockError
	if errors.As(err, &le) {
		return le.Status, true
	}
	return 0, false
}

// ErrNoOwner Locks 的 ctx 中没有持有者。
// 获取与释放可能来自不同的句柄，只能靠 ctx 中的持有者配对，
// 调用前用 xdlock.EnsureOwner 或 xdlock.WithOwner 设置。
var ErrNoOwner = errors.New("xlock: no lock owner in context, use xdlock.EnsureOwner")

// IsContention 判断是否为锁竞争失败（状态码 5）。
func IsContention(err error) bool {
	s, ok := StatusOf(err)
	return ok && s == StatusContention
}
