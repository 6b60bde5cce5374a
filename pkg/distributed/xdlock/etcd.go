package xdlock

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// healthKey Health 读取的 key，不存在也不影响结果
const healthKey = "xdlock/health"

// =============================================================================
// etcd Provider
// =============================================================================

// etcdProvider 基于 etcd concurrency.Mutex 的锁提供者。
//
// 每次获取创建独立的 Session，Session 心跳即看门狗；
// 有固定租期时在租期到期后停止心跳，锁随 Session TTL 过期。
// etcd 的 Mutex 按 revision 排队，本身就是公平的。
type etcdProvider struct {
	client *clientv3.Client
	opts   *options
	holds  holdTable
	closed atomic.Bool
}

// NewEtcdProvider 创建 etcd 锁提供者，不支持读写锁。
func NewEtcdProvider(client *clientv3.Client, opts ...Option) (Provider, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &etcdProvider{client: client, opts: applyOptions(opts)}, nil
}

func (p *etcdProvider) Reentrant(key string) Locker {
	return &etcdLocker{p: p, key: key, self: NewOwner()}
}

func (p *etcdProvider) Fair(key string) Locker {
	return &etcdLocker{p: p, key: key, self: NewOwner()}
}

func (p *etcdProvider) ReadWrite(key string) ReadWriteLocker {
	return unsupportedRW{key: key}
}

func (p *etcdProvider) Health(ctx context.Context) error {
	if p.closed.Load() {
		return ErrProviderUnavailable
	}
	_, err := p.client.Get(ctx, healthKey, clientv3.WithLimit(1))
	return err
}

// Close 释放本进程持有的锁并关闭对应 Session。
func (p *etcdProvider) Close(ctx context.Context) error {
	if p.closed.Swap(true) {
		return nil
	}
	var errs []error
	for _, release := range p.holds.drain() {
		if err := release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sessionTTL 固定租期向上取整到秒，看门狗模式使用 WithWatchdogTimeout
func (p *etcdProvider) sessionTTL(lease time.Duration) int {
	ttl, _ := p.opts.effectiveLease(lease)
	sec := int(math.Ceil(ttl.Seconds()))
	if sec < 1 {
		sec = 1
	}
	return sec
}

// =============================================================================
// etcd Locker
// =============================================================================

type etcdLocker struct {
	p    *etcdProvider
	key  string
	self string
}

func (l *etcdLocker) Key() string {
	return l.key
}

func (l *etcdLocker) Lock(ctx context.Context, lease time.Duration) error {
	_, err := l.acquire(ctx, 0, lease, true)
	return err
}

func (l *etcdLocker) TryLock(ctx context.Context, wait, lease time.Duration) (bool, error) {
	return l.acquire(ctx, wait, lease, false)
}

func (l *etcdLocker) acquire(ctx context.Context, wait, lease time.Duration, block bool) (bool, error) {
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

	session, err := concurrency.NewSession(l.p.client, concurrency.WithTTL(l.p.sessionTTL(lease)))
	if err != nil {
		return false, wrapEtcdError(err)
	}
	mutex := concurrency.NewMutex(session, l.key)

	ok, err := l.lockMutex(ctx, mutex, wait, block)
	if !ok || err != nil {
		_ = session.Close()
		return false, err
	}

	var timer *time.Timer
	if lease > 0 {
		// 停止心跳后锁在 Session TTL 内过期
		timer = time.AfterFunc(lease, session.Orphan)
	}
	release := func(ctx context.Context) error {
		if timer != nil {
			timer.Stop()
		}
		var errs []error
		select {
		case <-session.Done():
			errs = append(errs, ErrNotLocked)
		default:
			if err := mutex.Unlock(ctx); err != nil {
				errs = append(errs, wrapEtcdError(err))
			}
		}
		if err := session.Close(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, wrapEtcdError(err))
		}
		return errors.Join(errs...)
	}
	if err := l.p.holds.add(ctx, l.key, owner, release); err != nil {
		l.p.opts.logger.Warn(ctx, "xdlock: release duplicate etcd session failed",
			slog.String("key", l.key), xlog.Err(err))
	}
	return true, nil
}

func (l *etcdLocker) lockMutex(ctx context.Context, mutex *concurrency.Mutex, wait time.Duration, block bool) (bool, error) {
	switch {
	case block:
		if err := mutex.Lock(ctx); err != nil {
			return false, wrapEtcdError(err)
		}
		return true, nil
	case wait <= 0:
		err := mutex.TryLock(ctx)
		if errors.Is(err, concurrency.ErrLocked) {
			return false, nil
		}
		if err != nil {
			return false, wrapEtcdError(err)
		}
		return true, nil
	default:
		wctx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		err := mutex.Lock(wctx)
		if err == nil {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if wctx.Err() != nil {
			return false, nil
		}
		return false, wrapEtcdError(err)
	}
}

func (l *etcdLocker) Unlock(ctx context.Context) error {
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

// wrapEtcdError 将 etcd 错误转换为 xdlock 错误。
func wrapEtcdError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, concurrency.ErrSessionExpired) || errors.Is(err, concurrency.ErrLockReleased) {
		return errors.Join(ErrNotLocked, err)
	}
	return wrapBackendError(err)
}
