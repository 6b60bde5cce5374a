package xdlock

import (
	"context"

	"github.com/google/uuid"
)

type ownerKey struct{}

// NewOwner 生成一个新的随机持有者标识。
func NewOwner() string {
	return uuid.NewString()
}

// WithOwner 将持有者标识写入 context。
// owner 为空时原样返回 ctx。
func WithOwner(ctx context.Context, owner string) context.Context {
	if ctx == nil || owner == "" {
		return ctx
	}
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom 从 context 读取持有者标识。
func OwnerFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// EnsureOwner 确保 context 带有持有者标识。
// 已有持有者时原样返回，否则生成一个新的。
func EnsureOwner(ctx context.Context) (context.Context, string) {
	if owner, ok := OwnerFrom(ctx); ok {
		return ctx, owner
	}
	owner := NewOwner()
	return WithOwner(ctx, owner), owner
}

// ownerOr 返回 context 中的持有者，没有时使用 fallback
func ownerOr(ctx context.Context, fallback string) string {
	if owner, ok := OwnerFrom(ctx); ok {
		return owner
	}
	return fallback
}
