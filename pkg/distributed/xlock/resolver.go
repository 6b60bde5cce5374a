package xlock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// PreConverter 在通用占位符替换之前改写锁名模板。
//
// 返回 ok=false 表示无法得到锁名，解析以状态码 2 失败。
type PreConverter interface {
	PreConvert(raw string, call CallContext) (converted string, ok bool, err error)
}

// PreConverterFunc 函数适配器。
type PreConverterFunc func(raw string, call CallContext) (string, bool, error)

// PreConvert 调用 f。
func (f PreConverterFunc) PreConvert(raw string, call CallContext) (string, bool, error) {
	return f(raw, call)
}

// PrincipalPreConverter 默认预转换：只把 {@userId} 替换为当前用户 ID，
// 没有用户时替换为 "null"，其余占位符保持不变。
type PrincipalPreConverter struct{}

// PreConvert 实现 PreConverter。
func (PrincipalPreConverter) PreConvert(raw string, call CallContext) (string, bool, error) {
	const span = "{" + TokenUserID + "}"
	if !strings.Contains(raw, span) {
		return raw, true, nil
	}
	user := xctx.UserID(call.Context())
	if user == "" {
		user = NullText
	}
	return strings.ReplaceAll(raw, span, user), true, nil
}

// Resolver 将锁名模板解析为最终的锁 key。
//
// 顺序固定为：预转换 → 加前缀 → 单遍替换剩余占位符。
// 前缀本身含有占位符时同样会被替换。
// Resolver 构造后只读，并发安全。
type Resolver struct {
	prefix string
	pre    PreConverter
	binder *Binder
	logger xlog.Logger
}

// NewResolver 创建解析器。pre 为 nil 时使用 PrincipalPreConverter，binder 为 nil 时使用默认 Binder。
func NewResolver(prefix string, pre PreConverter, binder *Binder, logger xlog.Logger) *Resolver {
	if pre == nil {
		pre = PrincipalPreConverter{}
	}
	if logger == nil {
		logger = xlog.Default()
	}
	if binder == nil {
		binder = NewBinder(WithBinderLogger(logger))
	}
	return &Resolver{prefix: prefix, pre: pre, binder: binder, logger: logger}
}

// Resolve 解析锁 key。预转换报错、panic 或返回 ok=false 时返回状态码 2 的 *LockError。
func (r *Resolver) Resolve(ctx context.Context, raw string, call CallContext) (key string, err error) {
	if ctx != nil {
		call = call.WithContext(ctx)
	}
	defer func() {
		if rec := recover(); rec != nil {
			key = ""
			err = newError(StatusKeyResolution, "resolve lock key panicked",
				fmt.Errorf("panic: %v", rec))
		}
	}()

	converted, ok, perr := r.pre.PreConvert(raw, call)
	if perr != nil {
		return "", newError(StatusKeyResolution, "pre-convert lock name "+raw, perr)
	}
	if !ok {
		return "", newError(StatusKeyResolution, "pre-convert returned nothing for "+raw, nil)
	}

	if strings.TrimSpace(r.prefix) != "" {
		converted = r.prefix + converted
	}

	key = Substitute(converted, func(token string) string {
		return r.binder.Format(token, call)
	})

	r.logger.Debug(call.Context(), "xlock: lock key resolved",
		slog.String("raw", raw), slog.String("key", key))
	return key, nil
}

// Prefix 返回配置的前缀。
func (r *Resolver) Prefix() string {
	return r.prefix
}
