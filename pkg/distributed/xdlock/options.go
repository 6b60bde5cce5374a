package xdlock

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// 默认配置
const (
	DefaultWatchdogTimeout  = 30 * time.Second
	DefaultRetryInterval    = 100 * time.Millisecond
	DefaultFairQueueTimeout = 5 * time.Second
)

// Option 定义 Provider 配置选项函数类型。
type Option func(*options)

type options struct {
	watchdogTimeout  time.Duration
	retryInterval    time.Duration
	fairQueueTimeout time.Duration
	breaker          *gobreaker.Settings
	logger           xlog.Logger
}

func defaultOptions() *options {
	return &options{
		watchdogTimeout:  DefaultWatchdogTimeout,
		retryInterval:    DefaultRetryInterval,
		fairQueueTimeout: DefaultFairQueueTimeout,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	// 排队者必须在截止时间内刷新，截止时间不能短于两次轮询间隔
	if o.fairQueueTimeout < 2*o.retryInterval {
		o.fairQueueTimeout = 2 * o.retryInterval
	}
	return o
}

// WithWatchdogTimeout 设置看门狗模式下锁的 TTL，续期间隔为其 1/3。
// 默认 30 秒。
func WithWatchdogTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.watchdogTimeout = d
		}
	}
}

// WithRetryInterval 设置等待锁时的轮询间隔，默认 100ms。
// 实际间隔会叠加不超过一半间隔的随机抖动。
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithFairQueueTimeout 设置公平锁排队者的存活时间，默认 5 秒。
// 排队者超过该时间未轮询会被移出队列。
func WithFairQueueTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.fairQueueTimeout = d
		}
	}
}

// WithBreaker 为后端调用启用熔断器。
// 熔断打开期间获取锁返回 ErrProviderUnavailable。
// 未设置 IsSuccessful 时，context 取消和超时不计为失败。
func WithBreaker(st gobreaker.Settings) Option {
	return func(o *options) {
		if st.Name == "" {
			st.Name = "xdlock"
		}
		if st.IsSuccessful == nil {
			st.IsSuccessful = func(err error) bool {
				return err == nil ||
					errors.Is(err, context.Canceled) ||
					errors.Is(err, context.DeadlineExceeded)
			}
		}
		o.breaker = &st
	}
}

// WithLogger 设置日志记录器，默认使用 xlog.Default()。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// effectiveLease 返回实际写入后端的租期以及是否需要看门狗
func (o *options) effectiveLease(lease time.Duration) (time.Duration, bool) {
	if lease <= 0 {
		return o.watchdogTimeout, true
	}
	return lease, false
}

func (o *options) renewInterval() time.Duration {
	interval := o.watchdogTimeout / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	return interval
}
