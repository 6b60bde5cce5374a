// Package xcron 提供多副本安全的定时任务调度。
//
// 调度基于 robfig/cron/v3，每次触发都经由 xlock.Guard 以非阻塞方式获取任务锁：
// 多个副本同时触发同一任务时只有一个执行，其余记为跳过。
//
// 锁名默认为 "cron:{job}"，{job} 绑定为任务名，最终 key 带上 Guard 的前缀
// （默认 "lock:cron:<任务名>"）。默认租期由看门狗续期，任务结束后释放。
// 需要其他语义时通过 WithLockSpec 指定完整的 LockSpec，例如固定租期且不自动释放，
// 用于保证同一任务在租期内最多执行一次。
//
// 用法：
//
//	guard := xlock.NewGuard(provider, xlock.DefaultConfig())
//	s := xcron.New(guard, xcron.WithLogger(logger))
//	_, err := s.AddFunc("@every 1m", "report", func(ctx context.Context) error {
//	    return buildReport(ctx)
//	}, xcron.WithTimeout(50*time.Second))
//	s.Start()
//	defer func() { <-s.Stop().Done() }()
//
// guard 为 nil 时不加锁，适用于单副本部署。
package xcron
