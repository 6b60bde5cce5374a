package xlock

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// NullText nil 值的字符串形式。
const NullText = "null"

// Binder 将占位符 token 解析为调用中的值。
//
// 解析顺序：
//  1. 以 @ 开头：依次询问特殊占位符 provider，第一个认识该 token 的生效，都不认识时为 nil
//  2. 不含 "."：按名称查找参数；找不到且恰好只有一个可绑定参数时，读取该参数的同名字段
//  3. 含 "."：第一段为参数名，之后每段为字段读取，中途遇到 nil 直接返回 nil
//
// 字段读取失败只记录 debug 日志并解析为 nil，不会中断 key 解析。
// Binder 构造后只读，并发安全。
type Binder struct {
	reader   FieldReader
	specials []SpecialTokenProvider
	logger   xlog.Logger
}

// BinderOption 定义 Binder 的配置选项。
type BinderOption func(*Binder)

// WithFieldReader 设置字段读取器，默认 NewReflectFieldReader(0)。
func WithFieldReader(r FieldReader) BinderOption {
	return func(b *Binder) {
		if r != nil {
			b.reader = r
		}
	}
}

// WithSpecialTokens 在默认的 ContextTokens 之前追加特殊占位符 provider。
func WithSpecialTokens(providers ...SpecialTokenProvider) BinderOption {
	return func(b *Binder) {
		for _, p := range providers {
			if p != nil {
				b.specials = append(b.specials, p)
			}
		}
	}
}

// WithBinderLogger 设置日志记录器。
func WithBinderLogger(logger xlog.Logger) BinderOption {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBinder 创建 Binder。
func NewBinder(opts ...BinderOption) *Binder {
	b := &Binder{}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.reader == nil {
		b.reader = NewReflectFieldReader(0)
	}
	if b.logger == nil {
		b.logger = xlog.Default()
	}
	b.specials = append(b.specials, ContextTokens{})
	return b
}

// Bind 解析 token，无法解析时返回 nil。
func (b *Binder) Bind(token string, call CallContext) any {
	ctx := call.Context()

	if isSpecial(token) {
		for _, p := range b.specials {
			if v, ok := p.Resolve(ctx, token); ok {
				return v
			}
		}
		b.logger.Debug(ctx, "xlock: unknown special token", slog.String("token", token))
		return nil
	}

	head, rest, dotted := strings.Cut(token, ".")
	if !dotted {
		if v, ok := call.lookup(token); ok {
			return v
		}
		// 单参数简写：{productId} 读取唯一参数的 productId 字段
		if only, ok := call.single(); ok {
			return b.read(ctx, only, token)
		}
		return nil
	}

	v, ok := call.lookup(head)
	if !ok {
		return nil
	}
	for _, seg := range strings.Split(rest, ".") {
		if isNil(v) {
			return nil
		}
		v = b.read(ctx, v, seg)
	}
	return v
}

// Format 解析 token 并转为字符串，nil 输出 "null"。
func (b *Binder) Format(token string, call CallContext) string {
	return Stringify(b.Bind(token, call))
}

func (b *Binder) read(ctx context.Context, v any, name string) any {
	out, err := b.reader.ReadField(v, name)
	if err != nil {
		b.logger.Debug(ctx, "xlock: read field failed",
			slog.String("field", name), xlog.Err(err))
		return nil
	}
	return out
}

// Stringify 将绑定值转为 key 片段。
// nil 与 nil 指针输出 "null"，指针先解引用，其余使用 fmt.Sprint，
// 因此实现了 fmt.Stringer 的类型使用其 String 方法。
func Stringify(v any) string {
	if isNil(v) {
		return NullText
	}
	if _, ok := v.(fmt.Stringer); ok {
		return fmt.Sprint(v)
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return NullText
		}
		rv = rv.Elem()
		if rv.CanInterface() {
			if s, ok := rv.Interface().(fmt.Stringer); ok {
				return s.String()
			}
		}
	}
	if !rv.CanInterface() {
		return fmt.Sprint(v)
	}
	return fmt.Sprint(rv.Interface())
}
