package xcron

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// =============================================================================
// Scheduler Options
// =============================================================================

type schedulerOptions struct {
	logger   xlog.Logger
	location *time.Location
	parser   cron.Parser
}

func defaultSchedulerOptions() *schedulerOptions {
	return &schedulerOptions{
		logger:   xlog.Default(),
		location: time.Local,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// SchedulerOption 调度器配置选项
type SchedulerOption func(*schedulerOptions)

// WithLogger 设置日志记录器，默认 xlog.Default()。
func WithLogger(logger xlog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLocation 设置 cron 表达式的时区，默认本地时区。
func WithLocation(loc *time.Location) SchedulerOption {
	return func(o *schedulerOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithParser 自定义 cron 表达式解析器。
func WithParser(parser cron.Parser) SchedulerOption {
	return func(o *schedulerOptions) {
		o.parser = parser
	}
}

// WithSeconds 启用秒级精度，表达式第一段为秒：
//
//	s.AddFunc("*/5 * * * * *", "tick", fn) // 每 5 秒
func WithSeconds() SchedulerOption {
	return func(o *schedulerOptions) {
		o.parser = cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		)
	}
}

// =============================================================================
// Job Options
// =============================================================================

// DefaultLockName 任务锁名模板，{job} 绑定为任务名
const DefaultLockName = "cron:{job}"

type jobOptions struct {
	spec      xlock.LockSpec
	timeout   time.Duration
	immediate bool
}

func defaultJobOptions() *jobOptions {
	return &jobOptions{
		// 非阻塞获取，看门狗续期，结束后释放
		spec: xlock.NewLockSpec(DefaultLockName, xlock.TryLock(0, -1)),
	}
}

// JobOption 任务配置选项
type JobOption func(*jobOptions)

// WithLockSpec 指定任务锁的完整声明。
//
// 锁名可以使用 {job} 引用任务名。Mode 为 ModeBlocking 时，
// 未获取到锁的副本会等待上一个副本执行完再执行，通常不是期望的行为。
func WithLockSpec(spec xlock.LockSpec) JobOption {
	return func(o *jobOptions) {
		o.spec = spec
	}
}

// WithTimeout 设置单次执行超时（包含等锁时间），0 表示不限制。
func WithTimeout(d time.Duration) JobOption {
	return func(o *jobOptions) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithImmediate 添加任务后立即执行一次，不等待第一次调度。
func WithImmediate() JobOption {
	return func(o *jobOptions) {
		o.immediate = true
	}
}
