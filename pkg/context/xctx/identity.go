package xctx

import "context"

// =============================================================================
// 日志属性 Key 常量
// =============================================================================

// 日志属性 Key，遵循下划线分隔的命名约定
const (
	KeyUserID    = "user_id"
	KeyClientIP  = "client_ip"
	KeyTenantID  = "tenant_id"
	KeyRequestID = "request_id"

	// identityFieldCount 字段数量，用于 slog 属性预分配
	identityFieldCount = 4
)

const (
	keyUserID    = contextKey("xctx:user_id")
	keyClientIP  = contextKey("xctx:client_ip")
	keyTenantID  = contextKey("xctx:tenant_id")
	keyRequestID = contextKey("xctx:request_id")
)

// withString 是所有 WithXxx 的公共实现。
func withString(ctx context.Context, key contextKey, value string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, value), nil
}

// stringValue 是所有读取函数的公共实现，缺失返回空字符串。
func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// requireString 缺失或为空时返回 missing。
func requireString(ctx context.Context, key contextKey, missing error) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := stringValue(ctx, key)
	if v == "" {
		return "", missing
	}
	return v, nil
}

// =============================================================================
// UserID
// =============================================================================

// WithUserID 将已认证用户 ID 注入 context。
//
// 通常由认证中间件在校验通过后调用。
func WithUserID(ctx context.Context, userID string) (context.Context, error) {
	return withString(ctx, keyUserID, userID)
}

// UserID 从 context 提取用户 ID，不存在返回空字符串
func UserID(ctx context.Context) string {
	return stringValue(ctx, keyUserID)
}

// RequireUserID 从 context 提取用户 ID，不存在返回 ErrMissingUserID
func RequireUserID(ctx context.Context) (string, error) {
	return requireString(ctx, keyUserID, ErrMissingUserID)
}

// =============================================================================
// ClientIP
// =============================================================================

// WithClientIP 将调用方 IP 注入 context
func WithClientIP(ctx context.Context, ip string) (context.Context, error) {
	return withString(ctx, keyClientIP, ip)
}

// ClientIP 从 context 提取调用方 IP，不存在返回空字符串
func ClientIP(ctx context.Context) string {
	return stringValue(ctx, keyClientIP)
}

// RequireClientIP 从 context 提取调用方 IP，不存在返回 ErrMissingClientIP
func RequireClientIP(ctx context.Context) (string, error) {
	return requireString(ctx, keyClientIP, ErrMissingClientIP)
}

// =============================================================================
// TenantID
// =============================================================================

// WithTenantID 将 tenant ID 注入 context
func WithTenantID(ctx context.Context, tenantID string) (context.Context, error) {
	return withString(ctx, keyTenantID, tenantID)
}

// TenantID 从 context 提取 tenant ID，不存在返回空字符串
func TenantID(ctx context.Context) string {
	return stringValue(ctx, keyTenantID)
}

// RequireTenantID 从 context 提取 tenant ID，不存在返回 ErrMissingTenantID
func RequireTenantID(ctx context.Context) (string, error) {
	return requireString(ctx, keyTenantID, ErrMissingTenantID)
}

// =============================================================================
// RequestID
// =============================================================================

// WithRequestID 将请求标识注入 context
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	return withString(ctx, keyRequestID, requestID)
}

// RequestID 从 context 提取请求标识，不存在返回空字符串
func RequestID(ctx context.Context) string {
	return stringValue(ctx, keyRequestID)
}

// RequireRequestID 从 context 提取请求标识，不存在返回 ErrMissingRequestID
func RequireRequestID(ctx context.Context) (string, error) {
	return requireString(ctx, keyRequestID, ErrMissingRequestID)
}

// =============================================================================
// 批量操作
// =============================================================================

// Identity 调用方身份信息的值对象
type Identity struct {
	UserID    string
	ClientIP  string
	TenantID  string
	RequestID string
}

// WithIdentity 批量注入身份信息，只写入非空字段。
func WithIdentity(ctx context.Context, id Identity) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	pairs := [...]struct {
		key   contextKey
		value string
	}{
		{keyUserID, id.UserID},
		{keyClientIP, id.ClientIP},
		{keyTenantID, id.TenantID},
		{keyRequestID, id.RequestID},
	}
	for _, p := range pairs {
		if p.value != "" {
			ctx = context.WithValue(ctx, p.key, p.value)
		}
	}
	return ctx, nil
}

// GetIdentity 一次性读取全部身份信息
func GetIdentity(ctx context.Context) Identity {
	return Identity{
		UserID:    UserID(ctx),
		ClientIP:  ClientIP(ctx),
		TenantID:  TenantID(ctx),
		RequestID: RequestID(ctx),
	}
}
