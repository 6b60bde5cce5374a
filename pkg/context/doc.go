// Package context 提供请求身份在 context 中传递的子包。
//
// 子包列表：
//   - xctx: 身份信息（用户、客户端 IP、租户、请求 ID）的注入与提取
//   - xpeer: HTTP/gRPC 中间件，从请求中识别客户端 IP 和用户并写入 context
//
// 设计原则：
//   - 所有身份信息通过 context.Context 传递，不使用全局变量
//   - 中间件只在受信任代理之后才采信 X-Forwarded-For
package context
