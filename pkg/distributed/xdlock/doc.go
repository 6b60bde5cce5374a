// Package xdlock 提供分布式锁能力的统一抽象和多种后端实现。
//
// # 核心概念
//
//   - Provider: 锁能力提供者，按 key 创建可重入锁、公平锁、读写锁
//   - Locker: 单个锁句柄，提供 Lock/TryLock/Unlock
//   - ReadWriteLocker: 同一个 key 上的读锁和写锁
//   - Owner: 锁的持有者身份，通过 context 传递
//
// # 持有者身份
//
// 重入以"持有者"为单位判断。持有者通过 WithOwner 写入 context，
// 同一个 context 派生出的 goroutine 共享同一持有者，因此在锁保护区内
// 启动的并发任务可以再次进入同一把锁。context 中没有持有者时，
// 每个锁句柄使用自己的随机持有者。
//
// # 租期
//
// lease > 0 时锁在 lease 之后自动过期；lease <= 0（通常传 LeaseWatchdog）
// 表示由看门狗续期：锁的 TTL 为 WithWatchdogTimeout 配置的时长，
// 每隔 1/3 TTL 续期一次，直到释放或 Provider 关闭。
//
// # 后端差异
//
//	| 特性 | Redis (Lua) | Redlock (redsync) | etcd |
//	|------|-------------|-------------------|------|
//	| 可重入 | 服务端计数 | 进程内计数 | 进程内计数 |
//	| 公平锁 | FIFO 队列 | 不支持 | 天然 FIFO |
//	| 读写锁 | 支持 | 不支持 | 不支持 |
//	| 看门狗 | 支持 | 支持 | Session 心跳 |
//
// 不支持的能力返回 ErrUnsupported。
package xdlock
