package xctx

import (
	"context"
	"log/slog"
)

// AppendIdentityAttrs 将 context 中的身份信息追加到现有切片，只追加非空字段。
func AppendIdentityAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}

	if v := UserID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyUserID, v))
	}
	if v := ClientIP(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyClientIP, v))
	}
	if v := TenantID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTenantID, v))
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}

	return attrs
}

// IdentityAttrs 从 context 提取身份信息，转换为 slog.Attr 切片
//
// 都为空时返回 nil。热路径建议使用 AppendIdentityAttrs。
func IdentityAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendIdentityAttrs(make([]slog.Attr, 0, identityFieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
