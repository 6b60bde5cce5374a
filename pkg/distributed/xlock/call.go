package xlock

import (
	"context"
	"net/http"

	"google.golang.org/grpc"
)

// Param 一个命名调用参数。
type Param struct {
	Name  string
	Value any
}

// Arg 创建命名参数。
func Arg(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// CallContext 一次被保护调用的运行时视图：context 加按顺序排列的命名参数。
//
// 每次调用创建，调用结束后丢弃。
type CallContext struct {
	ctx    context.Context
	params []Param
}

// NewCallContext 创建调用上下文。ctx 为 nil 时使用 context.Background()。
func NewCallContext(ctx context.Context, params ...Param) CallContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return CallContext{ctx: ctx, params: params}
}

// Context 返回调用的 context。
func (c CallContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Params 返回全部参数，包括不参与绑定的传输层参数。
func (c CallContext) Params() []Param {
	return c.params
}

// WithContext 返回替换了 context 的副本。
func (c CallContext) WithContext(ctx context.Context) CallContext {
	c.ctx = ctx
	return c
}

// lookup 按名称查找可绑定参数
func (c CallContext) lookup(name string) (any, bool) {
	for _, p := range c.params {
		if p.Name == name && bindable(p.Value) {
			return p.Value, true
		}
	}
	return nil, false
}

// single 恰好只有一个可绑定参数时返回它
func (c CallContext) single() (any, bool) {
	var (
		found any
		n     int
	)
	for _, p := range c.params {
		if !bindable(p.Value) {
			continue
		}
		n++
		found = p.Value
	}
	return found, n == 1
}

// bindable 传输层载体（请求、响应、context、流）不参与绑定
func bindable(v any) bool {
	switch v.(type) {
	case *http.Request, http.ResponseWriter, context.Context, grpc.ServerStream:
		return false
	default:
		return true
	}
}
