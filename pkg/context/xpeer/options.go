package xpeer

import "go4.org/netipx"

// Option 中间件与拦截器共用的选项
type Option func(*config)

type config struct {
	trusted      *netipx.IPSet
	userIDHeader string
}

// 默认不读取用户头，用户 ID 只来自认证层
func defaultConfig() *config {
	return &config{}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithTrustedProxies 只在远端地址属于 set 时读取转发头。
// set 为 nil 时恢复默认行为（总是读取）。
func WithTrustedProxies(set *netipx.IPSet) Option {
	return func(c *config) {
		c.trusted = set
	}
}

// WithUserIDHeader 从 name 指定的 HTTP Header 读取用户 ID，默认不读取。
//
// 只应在网关已完成认证并覆盖该头时开启，否则客户端可以伪造 {@userId}，
// 借此绕开按用户划分的锁。常见用法是 WithUserIDHeader(HeaderUserID)。
// 传入空字符串表示不读取。gRPC 拦截器使用同名的小写 metadata key。
func WithUserIDHeader(name string) Option {
	return func(c *config) {
		c.userIDHeader = name
	}
}
