package xdlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// =============================================================================
// Redlock Provider
// =============================================================================

// redlockProvider 基于 redsync 的 Redlock 提供者。
//
// 只支持互斥锁；重入在进程内按持有者计数。
type redlockProvider struct {
	clients []redis.UniversalClient
	rs      *redsync.Redsync
	opts    *options
	holds   holdTable
	dogs    watchdogSet
	closed  atomic.Bool
}

// NewRedlockProvider 创建 Redlock 锁提供者。
// 单个客户端为单节点模式，多个独立节点时使用 Redlock 算法，要求多数节点成功。
// Fair 和 ReadWrite 返回的句柄在获取时报 ErrUnsupported。
func NewRedlockProvider(clients []redis.UniversalClient, opts ...Option) (Provider, error) {
	if len(clients) == 0 {
		return nil, ErrNilClient
	}
	pools := make([]redsyncredis.Pool, len(clients))
	for i, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("%w: clients[%d]", ErrNilClient, i)
		}
		pools[i] = goredis.NewPool(c)
	}
	return &redlockProvider{
		clients: clients,
		rs:      redsync.New(pools...),
		opts:    applyOptions(opts),
	}, nil
}

func (p *redlockProvider) Reentrant(key string) Locker {
	return &redlockLocker{p: p, key: key, self: NewOwner()}
}

// Fair Redlock 无法保证等待顺序
func (p *redlockProvider) Fair(key string) Locker {
	return unsupportedLocker{key: key}
}

func (p *redlockProvider) ReadWrite(key string) ReadWriteLocker {
	return unsupportedRW{key: key}
}

// Health 检查所有节点，任一节点不可达即返回错误。
func (p *redlockProvider) Health(ctx context.Context) error {
	if p.closed.Load() {
		return ErrProviderUnavailable
	}
	var errs []error
	for i, c := range p.clients {
		if err := c.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("node %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close 停止看门狗，并释放本进程仍持有的锁。
func (p *redlockProvider) Close(ctx context.Context) error {
	if p.closed.Swap(true) {
		return nil
	}
	p.dogs.stopAll()

	var errs []error
	for _, release := range p.holds.drain() {
		if err := release(ctx); err != nil && !errors.Is(err, ErrNotLocked) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// Redlock Locker
// =============================================================================

type redlockLocker struct {
	p    *redlockProvider
	key  string
	self string
}

func (l *redlockLocker) Key() string {
	return l.key
}

func (l *redlockLocker) Lock(ctx context.Context, lease time.Duration) error {
	_, err := l.acquire(ctx, 0, lease, true)
	return err
}

func (l *redlockLocker) TryLock(ctx context.Context, wait, lease time.Duration) (bool, error) {
	return l.acquire(ctx, wait, lease, false)
}

func (l *redlockLocker) acquire(ctx context.Context, wait, lease time.Duration, block bool) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}
	if err := validateKey(l.key); err != nil {
		return false, err
	}
	if l.p.closed.Load() {
		return false, ErrProviderUnavailable
	}

	owner := ownerOr(ctx, l.self)
	if l.p.holds.enter(l.key, owner) {
		return true, nil
	}

	expiry, watch := l.p.opts.effectiveLease(lease)
	mutex := l.p.rs.NewMutex(l.key,
		redsync.WithExpiry(expiry),
		redsync.WithTries(1),
	)

	ok, err := waitFor(ctx, wait, block, l.p.opts.retryInterval, func() (bool, error) {
		err := wrapRedsyncError(mutex.TryLockContext(ctx))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, errNotAcquired) {
			return false, nil
		}
		return false, err
	})
	if !ok || err != nil {
		return false, err
	}

	var dog *watchdog
	if watch {
		dog = l.p.dogs.start(l.key, l.p.opts.renewInterval(), func(ctx context.Context) (bool, error) {
			extended, err := mutex.ExtendContext(ctx)
			if errors.Is(err, redsync.ErrExtendFailed) {
				return false, nil
			}
			return extended, wrapRedsyncError(err)
		}, l.p.opts.logger)
	}

	release := func(ctx context.Context) error {
		if dog != nil {
			dog.stop()
		}
		unlocked, err := mutex.UnlockContext(ctx)
		if err != nil {
			return wrapRedsyncError(err)
		}
		if !unlocked {
			return ErrNotLocked
		}
		return nil
	}
	if err := l.p.holds.add(ctx, l.key, owner, release); err != nil {
		l.p.opts.logger.Warn(ctx, "xdlock: release duplicate redlock failed",
			slog.String("key", l.key), xlog.Err(err))
	}
	return true, nil
}

func (l *redlockLocker) Unlock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	release, held := l.p.holds.leave(l.key, ownerOr(ctx, l.self))
	if !held {
		return ErrNotLocked
	}
	if release == nil {
		return nil
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
	}
	return release(ctx)
}

// wrapRedsyncError 将 redsync 错误转换为 xdlock 错误。
// 锁被占用转换为 errNotAcquired，由等待循环继续重试。
func wrapRedsyncError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// ErrTaken 是结构体类型，需要使用 errors.As 检查
	var errTaken *redsync.ErrTaken
	if errors.As(err, &errTaken) {
		return errNotAcquired
	}
	// 未达到多数派，节点故障会以 RedisError 单独返回
	if errors.Is(err, redsync.ErrFailed) {
		return errNotAcquired
	}
	if errors.Is(err, redsync.ErrLockAlreadyExpired) {
		return fmt.Errorf("%w: %w", ErrNotLocked, err)
	}
	return err
}
