// Package xpeer 从 HTTP/gRPC 入口提取调用方信息并写入 context。
//
// 提取的字段由 xctx 存储，锁名模板中的特殊占位符依赖它们：
//
//   - {@ip}: 调用方 IP。优先取 X-Forwarded-For 的第一跳，其次 X-Real-IP，
//     最后是连接的远端地址
//   - {@userId}: 已认证用户 ID，由认证层调用 xctx.WithUserID 写入。
//     请求头由客户端控制，只有配置 WithUserIDHeader 后才会读取
//
// # 可信代理
//
// 转发头可以被客户端伪造。配置 WithTrustedProxies 后，只有远端地址落在
// 可信网段内时才读取转发头；未配置时总是读取，适合部署在网关之后的服务。
//
//	trusted, err := xpeer.ParseTrustedProxies([]string{"10.0.0.0/8"})
//	handler = xpeer.HTTPMiddleware(xpeer.WithTrustedProxies(trusted))(handler)
//
// gRPC 服务使用 UnaryServerInterceptor，远端地址来自 peer.FromContext，
// 转发信息来自小写的 metadata key（x-forwarded-for、x-user-id 等）。
package xpeer
