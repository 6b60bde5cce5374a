package xlock

import (
	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
)

// DefaultPrefix 默认锁 key 前缀。
const DefaultPrefix = "lock:"

// Config 锁引擎配置，可由 xconf 从 lock 配置段反序列化。
type Config struct {
	// Prefix 锁 key 前缀，DefaultConfig 中为 "lock:"；为空白时不加前缀。
	Prefix string `koanf:"prefix" json:"prefix"`
	// DefaultFailureMessage LockSpec 未设置 FailureMessage 时使用。
	DefaultFailureMessage string `koanf:"default-failure-message" json:"default-failure-message"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{Prefix: DefaultPrefix, DefaultFailureMessage: DefaultFailureMessage}
}

// Option 定义 Guard 和 Locks 的配置选项。
type Option func(*options)

type options struct {
	pre      PreConverter
	binder   *Binder
	logger   xlog.Logger
	observer xmetrics.Observer
}

// WithPreConverter 设置锁名预转换，默认 PrincipalPreConverter。
func WithPreConverter(pre PreConverter) Option {
	return func(o *options) {
		if pre != nil {
			o.pre = pre
		}
	}
}

// WithBinder 设置占位符绑定器。
func WithBinder(b *Binder) Option {
	return func(o *options) {
		if b != nil {
			o.binder = b
		}
	}
}

// WithLogger 设置日志记录器，默认 xlog.Default()。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观测器，默认不观测。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.observer == nil {
		o.observer = xmetrics.NoopObserver{}
	}
	return o
}

// providerOf 避免 typed nil 接口
func providerOf(p xdlock.Provider) xdlock.Provider {
	if isNil(p) {
		return nil
	}
	return p
}
