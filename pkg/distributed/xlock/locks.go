package xlock

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// Locks 命令式加锁门面，适用于无法用 Guard 包装的代码路径。
//
// key 为 prefix + name，不做占位符替换。获取和释放成对调用，
// 持有者身份取自 ctx（见 xdlock.WithOwner），因此获取与释放应使用同一个 ctx。
// ctx 中没有持有者时获取返回状态码 3、释放返回状态码 4，均包装 ErrNoOwner。
//
//	ctx, _ = xdlock.EnsureOwner(ctx)
//	if err := locks.Lock(ctx, "order:42"); err != nil {
//		return err
//	}
//	defer locks.Unlock(ctx, "order:42")
type Locks struct {
	provider xdlock.Provider
	prefix   string
	logger   xlog.Logger
}

// NewLocks 创建门面。provider 为 nil 时所有操作返回状态码 1。
func NewLocks(provider xdlock.Provider, cfg Config, opts ...Option) *Locks {
	o := applyOptions(opts)
	return &Locks{provider: providerOf(provider), prefix: cfg.Prefix, logger: o.logger}
}

// Key 返回 name 对应的完整锁 key。
func (l *Locks) Key(name string) string {
	if strings.TrimSpace(l.prefix) == "" {
		return name
	}
	return l.prefix + name
}

// =============================================================================
// 可重入锁
// =============================================================================

// Lock 阻塞获取可重入锁，由看门狗续期。
func (l *Locks) Lock(ctx context.Context, name string) error {
	return l.lock(ctx, TypeReentrant, name, xdlock.LeaseWatchdog)
}

// LockFor 阻塞获取可重入锁，lease 后自动过期。
func (l *Locks) LockFor(ctx context.Context, name string, lease time.Duration) error {
	return l.lock(ctx, TypeReentrant, name, lease)
}

// TryLock 尝试一次获取可重入锁，由看门狗续期。
func (l *Locks) TryLock(ctx context.Context, name string) (bool, error) {
	return l.tryLock(ctx, TypeReentrant, name, 0, xdlock.LeaseWatchdog)
}

// TryLockFor 在 wait 内尝试获取可重入锁。
func (l *Locks) TryLockFor(ctx context.Context, name string, wait, lease time.Duration) (bool, error) {
	return l.tryLock(ctx, TypeReentrant, name, wait, lease)
}

// Unlock 释放可重入锁。
func (l *Locks) Unlock(ctx context.Context, name string) error {
	return l.unlock(ctx, TypeReentrant, name)
}

// =============================================================================
// 公平锁
// =============================================================================

// FairLock 阻塞获取公平锁。
func (l *Locks) FairLock(ctx context.Context, name string) error {
	return l.lock(ctx, TypeFair, name, xdlock.LeaseWatchdog)
}

// FairLockFor 阻塞获取公平锁，lease 后自动过期。
func (l *Locks) FairLockFor(ctx context.Context, name string, lease time.Duration) error {
	return l.lock(ctx, TypeFair, name, lease)
}

// TryFairLock 尝试一次获取公平锁。
func (l *Locks) TryFairLock(ctx context.Context, name string) (bool, error) {
	return l.tryLock(ctx, TypeFair, name, 0, xdlock.LeaseWatchdog)
}

// TryFairLockFor 在 wait 内尝试获取公平锁。
func (l *Locks) TryFairLockFor(ctx context.Context, name string, wait, lease time.Duration) (bool, error) {
	return l.tryLock(ctx, TypeFair, name, wait, lease)
}

// FairUnlock 释放公平锁。
func (l *Locks) FairUnlock(ctx context.Context, name string) error {
	return l.unlock(ctx, TypeFair, name)
}

// =============================================================================
// 读写锁
// =============================================================================

// ReadLock 阻塞获取读锁。
func (l *Locks) ReadLock(ctx context.Context, name string) error {
	return l.lock(ctx, TypeRead, name, xdlock.LeaseWatchdog)
}

// ReadLockFor 阻塞获取读锁，lease 后自动过期。
func (l *Locks) ReadLockFor(ctx context.Context, name string, lease time.Duration) error {
	return l.lock(ctx, TypeRead, name, lease)
}

// TryReadLock 尝试一次获取读锁。
func (l *Locks) TryReadLock(ctx context.Context, name string) (bool, error) {
	return l.tryLock(ctx, TypeRead, name, 0, xdlock.LeaseWatchdog)
}

// TryReadLockFor 在 wait 内尝试获取读锁。
func (l *Locks) TryReadLockFor(ctx context.Context, name string, wait, lease time.Duration) (bool, error) {
	return l.tryLock(ctx, TypeRead, name, wait, lease)
}

// ReadUnlock 释放读锁。
func (l *Locks) ReadUnlock(ctx context.Context, name string) error {
	return l.unlock(ctx, TypeRead, name)
}

// WriteLock 阻塞获取写锁。
func (l *Locks) WriteLock(ctx context.Context, name string) error {
	return l.lock(ctx, TypeWrite, name, xdlock.LeaseWatchdog)
}

// WriteLockFor 阻塞获取写锁，lease 后自动过期。
func (l *Locks) WriteLockFor(ctx context.Context, name string, lease time.Duration) error {
	return l.lock(ctx, TypeWrite, name, lease)
}

// TryWriteLock 尝试一次获取写锁。
func (l *Locks) TryWriteLock(ctx context.Context, name string) (bool, error) {
	return l.tryLock(ctx, TypeWrite, name, 0, xdlock.LeaseWatchdog)
}

// TryWriteLockFor 在 wait 内尝试获取写锁。
func (l *Locks) TryWriteLockFor(ctx context.Context, name string, wait, lease time.Duration) (bool, error) {
	return l.tryLock(ctx, TypeWrite, name, wait, lease)
}

// WriteUnlock 释放写锁。
func (l *Locks) WriteUnlock(ctx context.Context, name string) error {
	return l.unlock(ctx, TypeWrite, name)
}

// =============================================================================
// 按类型操作
// =============================================================================

// Acquire 阻塞获取 t 类型的锁，lease <= 0 表示看门狗续期。
// 适用于锁类型在运行时才确定的场景（例如来自配置或命令行）。
func (l *Locks) Acquire(ctx context.Context, t LockType, name string, lease time.Duration) error {
	return l.lock(ctx, t, name, lease)
}

// TryAcquire 在 wait 内尝试获取 t 类型的锁。
func (l *Locks) TryAcquire(ctx context.Context, t LockType, name string, wait, lease time.Duration) (bool, error) {
	return l.tryLock(ctx, t, name, wait, lease)
}

// Release 释放 t 类型的锁。
func (l *Locks) Release(ctx context.Context, t LockType, name string) error {
	return l.unlock(ctx, t, name)
}

// =============================================================================
// 内部实现
// =============================================================================

// locker 每次返回新的句柄，noOwner 为 ctx 缺少持有者时使用的状态码
func (l *Locks) locker(ctx context.Context, t LockType, name string, noOwner Status) (xdlock.Locker, string, error) {
	if l == nil || l.provider == nil {
		return nil, "", newError(StatusProviderUnavailable, "lock provider not configured", nil)
	}
	key := l.Key(name)
	if ctx != nil {
		if _, ok := xdlock.OwnerFrom(ctx); !ok {
			return nil, "", newError(noOwner, "lock "+key, ErrNoOwner)
		}
	}
	return lockerFor(l.provider, t, key), key, nil
}

func (l *Locks) lock(ctx context.Context, t LockType, name string, lease time.Duration) error {
	locker, key, err := l.locker(ctx, t, name, StatusAcquire)
	if err != nil {
		return err
	}
	if err := locker.Lock(ctx, lease); err != nil {
		return acquireError(key, err)
	}
	l.logger.Debug(ctx, "xlock: lock acquired", slog.String("key", key), slog.String("type", t.String()))
	return nil
}

// tryLock 等待被取消时返回状态码 3 的错误，竞争失败只返回 false
func (l *Locks) tryLock(ctx context.Context, t LockType, name string, wait, lease time.Duration) (bool, error) {
	locker, key, err := l.locker(ctx, t, name, StatusAcquire)
	if err != nil {
		return false, err
	}
	ok, err := locker.TryLock(ctx, wait, lease)
	if err != nil {
		return false, acquireError(key, err)
	}
	if ok {
		l.logger.Debug(ctx, "xlock: lock acquired", slog.String("key", key), slog.String("type", t.String()))
	}
	return ok, nil
}

func (l *Locks) unlock(ctx context.Context, t LockType, name string) error {
	locker, key, err := l.locker(ctx, t, name, StatusRelease)
	if err != nil {
		return err
	}
	if err := locker.Unlock(ctx); err != nil {
		return newError(StatusRelease, "release lock "+key, err)
	}
	l.logger.Debug(ctx, "xlock: lock released", slog.String("key", key), slog.String("type", t.String()))
	return nil
}
