package xlock

import (
	"context"
	"strings"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

// SpecialPrefix 特殊占位符前缀，例如 {@ip}、{@userId}。
const SpecialPrefix = "@"

// 内置特殊占位符
const (
	TokenIP       = "@ip"
	TokenUserID   = "@userId"
	TokenTenantID = "@tenantId"
)

// SpecialTokenProvider 解析以 @ 开头的特殊占位符。
//
// 特殊占位符的值来自调用的环境信息（客户端 IP、当前用户等），与调用参数无关。
// 不认识的 token 返回 ok=false，交给链上的下一个 provider。
type SpecialTokenProvider interface {
	Resolve(ctx context.Context, token string) (value any, ok bool)
}

// SpecialTokenFunc 函数适配器。
type SpecialTokenFunc func(ctx context.Context, token string) (any, bool)

// Resolve 调用 f。
func (f SpecialTokenFunc) Resolve(ctx context.Context, token string) (any, bool) {
	return f(ctx, token)
}

// ContextTokens 从 context 读取身份信息的内置 provider。
//
// {@ip} 读取 xctx.ClientIP，{@userId} 读取 xctx.UserID，{@tenantId} 读取 xctx.TenantID。
// 对应值由 xpeer 的 HTTP 中间件或 gRPC 拦截器写入。值为空时解析为 nil（输出 "null"）。
type ContextTokens struct{}

// Resolve 实现 SpecialTokenProvider。
func (ContextTokens) Resolve(ctx context.Context, token string) (any, bool) {
	var v string
	switch token {
	case TokenIP:
		v = xctx.ClientIP(ctx)
	case TokenUserID:
		v = xctx.UserID(ctx)
	case TokenTenantID:
		v = xctx.TenantID(ctx)
	default:
		return nil, false
	}
	if v == "" {
		return nil, true
	}
	return v, true
}

// StaticTokens 固定值的特殊占位符，key 含 @ 前缀。
type StaticTokens map[string]any

// Resolve 实现 SpecialTokenProvider。
func (s StaticTokens) Resolve(_ context.Context, token string) (any, bool) {
	v, ok := s[token]
	return v, ok
}

func isSpecial(token string) bool {
	return strings.HasPrefix(token, SpecialPrefix)
}
