// Package xlock 提供声明式分布式锁：用锁声明包装一段业务函数，
// 在执行前按调用参数解析锁 key 并获取锁，执行后释放。
//
// # 锁声明
//
// LockSpec 描述一次调用需要的锁：锁名模板、锁类型（可重入、公平、读、写）、
// 获取方式（阻塞或尝试）、租期、等待时间和是否自动释放。
//
//	spec := xlock.NewLockSpec("order:{order.id}", xlock.TryLock(3, -1))
//
// # 锁名模板
//
// 锁名中的 {token} 在调用时被替换，解析顺序为：
// 预转换（默认把 {@userId} 替换为当前用户）→ 加前缀 → 单遍替换剩余占位符。
//
//   - {name}: 名为 name 的参数；没有该参数且只有一个参数时读取该参数的 name 字段
//   - {a.b.c}: 参数 a 的字段 b 的字段 c
//   - {@ip}、{@userId}、{@tenantId}: 来自 context 的调用方身份，见 xpeer
//
// 无法解析的值输出为 "null"，不会使调用失败。
//
// # 错误
//
// 所有失败以 *LockError 返回，Status 为固定的数值状态码：
//
//	| 状态码 | 含义 |
//	|--------|------|
//	| 0 | 锁声明非法 |
//	| 1 | 未配置或无法使用锁提供者 |
//	| 2 | 锁 key 解析失败 |
//	| 3 | 获取锁失败 |
//	| 4 | 释放锁失败 |
//	| 5 | 尝试获取时锁被占用 |
//
// 被保护函数自身返回的错误原样传出；释放失败时与之合并为状态码 4。
//
// # 使用方式
//
//   - Guard.Run / Guard.Wrap / Do: 包装函数
//   - HTTPMiddleware / UnaryServerInterceptor: 包装 HTTP handler 和 gRPC 方法
//   - Locks: 命令式 Lock/Unlock，key 为前缀加锁名，不做模板替换；
//     ctx 必须带持有者（xdlock.EnsureOwner），获取与释放靠它配对
//
// 锁的实际获取由 xdlock.Provider 完成，可选 Redis、Redlock 和 etcd。
package xlock

//go:generate mockgen -destination=mock_xdlock_test.go -package=xlock_test github.com/omeyang/xlockkit/pkg/distributed/xdlock Locker,Provider,ReadWriteLocker
