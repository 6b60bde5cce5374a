// Package xctx 提供请求级上下文字段的存取。
//
// xctx 是纯存取层：只负责把值放进 context、从 context 取出，
// 不做格式校验。HTTP/gRPC 入口的提取逻辑在 xpeer 包。
//
// # 字段
//
//   - UserID: 已认证的调用方用户 ID，锁名模板中的 {@userId} 读取此值
//   - ClientIP: 调用方网络地址，锁名模板中的 {@ip} 读取此值
//   - TenantID: 租户 ID
//   - RequestID: 请求标识
//
// # 访问模式
//
// 每个字段提供三种函数：
//
//	ctx, err := xctx.WithUserID(ctx, "42")   // 注入，nil ctx 返回 ErrNilContext
//	uid := xctx.UserID(ctx)                  // 读取，缺失返回空字符串
//	uid, err := xctx.RequireUserID(ctx)      // 强制读取，缺失返回 ErrMissingUserID
//
// # 日志集成
//
// IdentityAttrs 把非空字段转换为 slog.Attr，xlog 的 EnrichHandler 使用它
// 自动给每条日志追加调用方信息。
package xctx
