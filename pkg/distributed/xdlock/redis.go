package xdlock

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// releaseTimeout ctx 已结束时释放锁使用的独立超时
const releaseTimeout = 5 * time.Second

// =============================================================================
// Redis Provider
// =============================================================================

// redisProvider 基于 Lua 脚本的 Redis 锁提供者。
type redisProvider struct {
	client redis.UniversalClient
	opts   *options
	cb     *gobreaker.CircuitBreaker[int64]
	dogs   watchdogSet
	closed atomic.Bool
}

// NewRedisProvider 创建基于单个 Redis（或集群）客户端的锁提供者。
//
// 支持可重入锁、公平锁和读写锁，全部状态保存在 Redis 中，
// 多个进程之间通过 Lua 脚本保证原子性。
func NewRedisProvider(client redis.UniversalClient, opts ...Option) (Provider, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := applyOptions(opts)
	p := &redisProvider{client: client, opts: o}
	if o.breaker != nil {
		p.cb = gobreaker.NewCircuitBreaker[int64](*o.breaker)
	}
	return p, nil
}

func (p *redisProvider) Reentrant(key string) Locker {
	return p.newLocker(key, kindReentrant, NewOwner())
}

func (p *redisProvider) Fair(key string) Locker {
	return p.newLocker(key, kindFair, NewOwner())
}

func (p *redisProvider) ReadWrite(key string) ReadWriteLocker {
	// 读写两个句柄共用同一个兜底持有者，写锁持有者才能再获取读锁
	self := NewOwner()
	return &redisRWLocker{
		key:   key,
		read:  p.newLocker(key, kindRead, self),
		write: p.newLocker(key, kindWrite, self),
	}
}

// Health 通过 PING 检查连通性。
func (p *redisProvider) Health(ctx context.Context) error {
	if p.closed.Load() {
		return ErrProviderUnavailable
	}
	return p.client.Ping(ctx).Err()
}

// Close 停止所有看门狗。已持有的锁保留到 TTL 过期。
func (p *redisProvider) Close(context.Context) error {
	if p.closed.Swap(true) {
		return nil
	}
	p.dogs.stopAll()
	return nil
}

// run 执行脚本，启用熔断器时经由熔断器调用
func (p *redisProvider) run(ctx context.Context, script *redis.Script, keys []string, args ...any) (int64, error) {
	call := func() (int64, error) {
		return script.Run(ctx, p.client, keys, args...).Int64()
	}
	var (
		res int64
		err error
	)
	if p.cb != nil {
		res, err = p.cb.Execute(call)
	} else {
		res, err = call()
	}
	return res, wrapBackendError(err)
}

func (p *redisProvider) newLocker(key string, kind lockKind, self string) *redisLocker {
	return &redisLocker{
		p:    p,
		key:  key,
		kind: kind,
		self: self,
	}
}

// =============================================================================
// Redis Locker
// =============================================================================

type lockKind int

const (
	kindReentrant lockKind = iota
	kindFair
	kindRead
	kindWrite
)

// redisLocker 本身不保存持有状态，重入次数在 Redis 中，
// 看门狗挂在 Provider 上，同一持有者换句柄释放也能停止续期。
type redisLocker struct {
	p    *redisProvider
	key  string
	kind lockKind
	self string // context 中没有持有者时使用
}

func (l *redisLocker) Key() string {
	return l.key
}

func (l *redisLocker) Lock(ctx context.Context, lease time.Duration) error {
	_, err := l.acquire(ctx, 0, lease, true)
	return err
}

func (l *redisLocker) TryLock(ctx context.Context, wait, lease time.Duration) (bool, error) {
	return l.acquire(ctx, wait, lease, false)
}

func (l *redisLocker) acquire(ctx context.Context, wait, lease time.Duration, block bool) (bool, error) {
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
	ttl, watch := l.p.opts.effectiveLease(lease)
	leaseMs := ttl.Milliseconds()
	if leaseMs <= 0 {
		leaseMs = 1
	}

	ok, err := waitFor(ctx, wait, block, l.p.opts.retryInterval, func() (bool, error) {
		return l.attempt(ctx, owner, leaseMs)
	})
	if !ok && l.kind == kindFair {
		l.leaveQueue(ctx, owner)
	}
	if !ok || err != nil {
		return false, err
	}

	l.acquired(owner, leaseMs, watch)
	return true, nil
}

func (l *redisLocker) attempt(ctx context.Context, owner string, leaseMs int64) (bool, error) {
	var (
		res int64
		err error
	)
	switch l.kind {
	case kindFair:
		now := time.Now().UnixMilli()
		queueTTL := l.p.opts.fairQueueTimeout.Milliseconds()
		res, err = l.p.run(ctx, fairAcquireScript,
			[]string{l.key, fairQueueKey(l.key), fairTimeoutKey(l.key)},
			leaseMs, owner, now, now+queueTTL, 2*queueTTL)
	case kindRead:
		res, err = l.p.run(ctx, readAcquireScript, []string{l.key}, leaseMs, l.field(owner), writeField(owner))
	case kindWrite:
		res, err = l.p.run(ctx, writeAcquireScript, []string{l.key}, leaseMs, l.field(owner))
	default:
		res, err = l.p.run(ctx, reentrantAcquireScript, []string{l.key}, leaseMs, owner)
	}
	if err != nil {
		return false, err
	}
	return res == scriptOK, nil
}

// leaveQueue 公平锁放弃等待时离开队列，否则后来者要等排队截止时间过去
func (l *redisLocker) leaveQueue(ctx context.Context, owner string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if _, err := l.p.run(cctx, fairCancelScript,
		[]string{fairQueueKey(l.key), fairTimeoutKey(l.key)}, owner); err != nil {
		l.p.opts.logger.Warn(ctx, "xdlock: leave fair queue failed",
			slog.String("key", l.key), xlog.Err(err))
	}
}

// acquired 需要看门狗时为 (锁, 持有者) 启动一个，已在运行则复用
func (l *redisLocker) acquired(owner string, leaseMs int64, watch bool) {
	if !watch {
		return
	}
	field := l.field(owner)
	renew := func(ctx context.Context) (bool, error) {
		res, err := l.p.run(ctx, renewScript, []string{l.key}, leaseMs, field)
		if err != nil {
			return false, err
		}
		return res == scriptOK, nil
	}
	l.p.dogs.startID(l.dogID(field), l.key, l.p.opts.renewInterval(), renew, l.p.opts.logger)
}

func (l *redisLocker) Unlock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := validateKey(l.key); err != nil {
		return err
	}
	// 调用方 ctx 已结束时仍要释放锁，否则只能等 TTL 过期
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
	}

	owner := ownerOr(ctx, l.self)
	field := l.field(owner)

	var (
		res int64
		err error
	)
	switch l.kind {
	case kindRead:
		res, err = l.p.run(ctx, readReleaseScript, []string{l.key}, field)
	case kindWrite:
		res, err = l.p.run(ctx, writeReleaseScript, []string{l.key}, field)
	default:
		res, err = l.p.run(ctx, reentrantReleaseScript, []string{l.key}, field)
	}
	if err != nil {
		return err
	}

	// 完全释放或已不再持有时，该持有者的续期都应停止
	if res != scriptHeld {
		l.p.dogs.stopID(l.dogID(field))
	}
	if res == scriptNotOwner {
		return ErrNotLocked
	}
	return nil
}

func (l *redisLocker) dogID(field string) string {
	return l.key + "\x00" + field
}

func (l *redisLocker) field(owner string) string {
	switch l.kind {
	case kindRead:
		return "r:" + owner
	case kindWrite:
		return writeField(owner)
	default:
		return owner
	}
}

func writeField(owner string) string {
	return "w:" + owner
}

// 队列 key 使用 hash tag，集群模式下与锁 key 落在同一个槽
func fairQueueKey(key string) string {
	return "xdlock_queue:{" + key + "}"
}

func fairTimeoutKey(key string) string {
	return "xdlock_timeout:{" + key + "}"
}

type redisRWLocker struct {
	key   string
	read  *redisLocker
	write *redisLocker
}

func (rw *redisRWLocker) ReadLock() Locker  { return rw.read }
func (rw *redisRWLocker) WriteLock() Locker { return rw.write }
func (rw *redisRWLocker) Key() string       { return rw.key }

