// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xdlock: 分布式锁提供者，支持 Redis、Redlock、etcd 后端
//   - xlock: 声明式加锁，锁名模板解析、获取与释放编排、状态码错误
//   - xcron: 多副本安全的定时任务，每次触发经由 xlock 互斥
//
// 设计原则：
//   - xlock 只依赖 xdlock.Provider 接口，后端可替换
//   - 支持看门狗续期和固定租期
//   - 错误携带稳定的状态码，便于映射为 HTTP/gRPC 响应
package distributed
