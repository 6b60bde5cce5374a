package xlock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
	"github.com/omeyang/xlockkit/pkg/observability/xmetrics"
)

// Guard 声明式锁的执行器：在持有锁的情况下运行被保护的函数。
//
// 每次调用的流程：校验声明 → 解析 key → 获取锁 → 执行函数 → 按 AutoRelease 释放。
// 同一个 context 上的嵌套调用共享持有者身份，可以重入可重入锁和公平锁。
// Guard 构造后只读，并发安全。
type Guard struct {
	provider xdlock.Provider
	resolver *Resolver
	cfg      Config
	logger   xlog.Logger
	observer xmetrics.Observer
}

// NewGuard 创建执行器。provider 为 nil 时每次调用返回状态码 1。
func NewGuard(provider xdlock.Provider, cfg Config, opts ...Option) *Guard {
	o := applyOptions(opts)
	return &Guard{
		provider: providerOf(provider),
		resolver: NewResolver(cfg.Prefix, o.pre, o.binder, o.logger),
		cfg:      cfg,
		logger:   o.logger,
		observer: o.observer,
	}
}

// Resolver 返回 Guard 使用的 key 解析器。
func (g *Guard) Resolver() *Resolver {
	return g.resolver
}

// Run 在持有 spec 声明的锁时执行 fn。
//
// fn 恰好执行一次，其返回值原样传出。AutoRelease 为 true 时无论 fn 成功、
// 失败还是 panic 都会释放锁（panic 在释放后继续传播）。释放失败返回状态码 4，
// fn 同时失败时两个错误都保留在错误链中。
func (g *Guard) Run(ctx context.Context, spec LockSpec, call CallContext, fn func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = call.Context()
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if g == nil || g.provider == nil {
		return newError(StatusProviderUnavailable, "lock provider not configured", nil)
	}

	key, err := g.resolver.Resolve(ctx, spec.Name, call)
	if err != nil {
		return err
	}

	ctx, _ = xdlock.EnsureOwner(ctx)
	locker := lockerFor(g.provider, spec.Type, key)
	if err := g.acquire(ctx, locker, spec, key); err != nil {
		return err
	}
	if !spec.AutoRelease && spec.LeaseTime == -1 {
		g.logger.Warn(ctx, "xlock: lock kept by watchdog until provider close",
			slog.String("key", key), slog.String("type", spec.Type.String()))
	}

	_, hold := xmetrics.Start(ctx, g.observer, g.spanOptions("hold", spec, key))
	defer func() {
		if spec.AutoRelease {
			if relErr := g.release(ctx, locker, key); relErr != nil {
				err = releaseError(key, err, relErr)
			}
		}
		hold.End(spanResult(err))
	}()

	return fn(ctx)
}

// Wrap 返回带锁的函数，每次调用用传入的参数构造 CallContext。
func (g *Guard) Wrap(spec LockSpec, fn func(ctx context.Context) error) func(ctx context.Context, params ...Param) error {
	return func(ctx context.Context, params ...Param) error {
		return g.Run(ctx, spec, NewCallContext(ctx, params...), fn)
	}
}

// Do 是 Run 的泛型版本，返回 fn 的结果。
func Do[T any](ctx context.Context, g *Guard, spec LockSpec, call CallContext,
	fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Run(ctx, spec, call, func(ctx context.Context) error {
		var ferr error
		out, ferr = fn(ctx)
		return ferr
	})
	return out, err
}

func (g *Guard) acquire(ctx context.Context, locker xdlock.Locker, spec LockSpec, key string) (err error) {
	ctx, span := xmetrics.Start(ctx, g.observer, g.spanOptions("acquire", spec, key))
	defer func() { span.End(spanResult(err)) }()

	switch spec.Mode {
	case ModeTry:
		ok, terr := locker.TryLock(ctx, spec.wait(), spec.lease())
		if terr != nil {
			return acquireError(key, terr)
		}
		if !ok {
			return newError(StatusContention, g.failureMessage(spec), nil)
		}
	default:
		if lerr := locker.Lock(ctx, spec.lease()); lerr != nil {
			return acquireError(key, lerr)
		}
	}

	g.logger.Debug(ctx, "xlock: lock acquired",
		slog.String("key", key), slog.String("type", spec.Type.String()))
	return nil
}

func (g *Guard) release(ctx context.Context, locker xdlock.Locker, key string) error {
	if err := locker.Unlock(ctx); err != nil {
		g.logger.Warn(ctx, "xlock: release lock failed", slog.String("key", key), xlog.Err(err))
		return err
	}
	g.logger.Debug(ctx, "xlock: lock released", slog.String("key", key))
	return nil
}

func (g *Guard) failureMessage(spec LockSpec) string {
	switch {
	case spec.FailureMessage != "":
		return spec.FailureMessage
	case g.cfg.DefaultFailureMessage != "":
		return g.cfg.DefaultFailureMessage
	default:
		return DefaultFailureMessage
	}
}

func (g *Guard) spanOptions(op string, spec LockSpec, key string) xmetrics.SpanOptions {
	return xmetrics.SpanOptions{
		Component: "xlock",
		Operation: op,
		Attrs: []xmetrics.Attr{
			xmetrics.String("xlock.key", key),
			xmetrics.String("xlock.type", spec.Type.String()),
			xmetrics.String("xlock.mode", spec.Mode.String()),
		},
	}
}

// =============================================================================
// 公共辅助
// =============================================================================

// lockerFor 按锁类型取得锁句柄，读写锁取同一个读写锁的子句柄
func lockerFor(p xdlock.Provider, t LockType, key string) xdlock.Locker {
	switch t {
	case TypeFair:
		return p.Fair(key)
	case TypeRead:
		return p.ReadWrite(key).ReadLock()
	case TypeWrite:
		return p.ReadWrite(key).WriteLock()
	default:
		return p.Reentrant(key)
	}
}

func acquireError(key string, err error) error {
	if errors.Is(err, xdlock.ErrProviderUnavailable) {
		return newError(StatusProviderUnavailable, "lock provider unavailable", err)
	}
	return newError(StatusAcquire, "acquire lock "+key, err)
}

// releaseError 释放失败不覆盖业务错误，两者合并
func releaseError(key string, bodyErr, relErr error) error {
	cause := relErr
	if bodyErr != nil {
		cause = errors.Join(bodyErr, relErr)
	}
	return newError(StatusRelease, "release lock "+key, cause)
}

func spanResult(err error) xmetrics.Result {
	if err == nil {
		return xmetrics.Result{}
	}
	if s, ok := StatusOf(err); ok {
		return xmetrics.Result{Status: xmetrics.Status(s.String()), Err: err}
	}
	return xmetrics.Result{Err: err}
}

// leaseDuration 换算租期，-1 表示看门狗续期
func leaseDuration(lease int64, unit time.Duration) time.Duration {
	if lease == DefaultLeaseTime {
		return xdlock.LeaseWatchdog
	}
	return time.Duration(lease) * unit
}
