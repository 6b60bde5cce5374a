package xdlock_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

func setupMiniredis(t *testing.T, opts ...xdlock.Option) (*miniredis.Miniredis, xdlock.Provider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts = append([]xdlock.Option{
		xdlock.WithRetryInterval(5 * time.Millisecond),
		xdlock.WithLogger(xlog.Discard()),
	}, opts...)
	p, err := xdlock.NewRedisProvider(client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return mr, p
}

func ownerCtx(owner string) context.Context {
	return xdlock.WithOwner(context.Background(), owner)
}

// =============================================================================
// 构造与校验
// =============================================================================

func TestNewRedisProvider_NilClient(t *testing.T) {
	_, err := xdlock.NewRedisProvider(nil)
	assert.ErrorIs(t, err, xdlock.ErrNilClient)
}

func TestRedisLocker_Validation(t *testing.T) {
	_, p := setupMiniredis(t)

	_, err := p.Reentrant("  ").TryLock(context.Background(), 0, time.Second)
	assert.ErrorIs(t, err, xdlock.ErrEmptyKey)

	//nolint:staticcheck // 测试 nil context
	_, err = p.Reentrant("k").TryLock(nil, 0, time.Second)
	assert.ErrorIs(t, err, xdlock.ErrNilContext)

	assert.ErrorIs(t, p.Reentrant("k").Unlock(context.Background()), xdlock.ErrNotLocked)
}

// =============================================================================
// 可重入锁
// =============================================================================

func TestRedisReentrant(t *testing.T) {
	mr, p := setupMiniredis(t)
	a, b := ownerCtx("a"), ownerCtx("b")
	lock := p.Reentrant("lock:order")

	ok, err := lock.TryLock(a, 0, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("同一持有者重入", func(t *testing.T) {
		ok, err := p.Reentrant("lock:order").TryLock(a, 0, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", mr.HGet("lock:order", "a"))
	})

	t.Run("其他持有者被拒绝", func(t *testing.T) {
		ok, err := lock.TryLock(b, 0, 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, lock.Unlock(b), xdlock.ErrNotLocked)
	})

	t.Run("释放次数与获取次数相同", func(t *testing.T) {
		require.NoError(t, lock.Unlock(a))
		assert.True(t, mr.Exists("lock:order"))
		require.NoError(t, lock.Unlock(a))
		assert.False(t, mr.Exists("lock:order"))

		ok, err := lock.TryLock(b, 0, time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, lock.Unlock(b))
	})
}

func TestRedisReentrant_LeaseExpires(t *testing.T) {
	mr, p := setupMiniredis(t)

	ok, err := p.Reentrant("lock:lease").TryLock(ownerCtx("a"), 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Second, mr.TTL("lock:lease"))

	mr.FastForward(2 * time.Second)

	ok, err = p.Reentrant("lock:lease").TryLock(ownerCtx("b"), 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, p.Reentrant("lock:lease").Unlock(ownerCtx("a")), xdlock.ErrNotLocked)
}

func TestRedisReentrant_HandleOwner(t *testing.T) {
	_, p := setupMiniredis(t)
	ctx := context.Background()

	// 没有持有者时按句柄区分
	h1, h2 := p.Reentrant("lock:h"), p.Reentrant("lock:h")
	ok, err := h1.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h2.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h1.Unlock(ctx))
}

// =============================================================================
// 等待
// =============================================================================

func TestRedisTryLock_Wait(t *testing.T) {
	_, p := setupMiniredis(t)
	a, b := ownerCtx("a"), ownerCtx("b")
	lock := p.Reentrant("lock:wait")

	ok, err := lock.TryLock(a, 0, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("等待超时返回false", func(t *testing.T) {
		start := time.Now()
		ok, err := lock.TryLock(b, 50*time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("等待期间释放后获取", func(t *testing.T) {
		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = lock.Unlock(a)
		}()
		ok, err := lock.TryLock(b, 2*time.Second, time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, lock.Unlock(b))
	})
}

func TestRedisLock_ContextCanceled(t *testing.T) {
	_, p := setupMiniredis(t)

	ok, err := p.Reentrant("lock:cancel").TryLock(ownerCtx("a"), 0, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(ownerCtx("b"), 30*time.Millisecond)
	defer cancel()
	err = p.Reentrant("lock:cancel").Lock(ctx, time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	canceled, cancelNow := context.WithCancel(ownerCtx("b"))
	cancelNow()
	_, err = p.Reentrant("lock:cancel").TryLock(canceled, time.Second, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisUnlock_CanceledContext(t *testing.T) {
	mr, p := setupMiniredis(t)
	ctx, cancel := context.WithCancel(ownerCtx("a"))

	require.NoError(t, p.Reentrant("lock:detached").Lock(ctx, time.Second))
	cancel()

	require.NoError(t, p.Reentrant("lock:detached").Unlock(ctx))
	assert.False(t, mr.Exists("lock:detached"))
}

// =============================================================================
// 看门狗
// =============================================================================

func TestRedisWatchdog(t *testing.T) {
	mr, p := setupMiniredis(t, xdlock.WithWatchdogTimeout(300*time.Millisecond))
	ctx := ownerCtx("a")
	lock := p.Reentrant("lock:dog")

	require.NoError(t, lock.Lock(ctx, xdlock.LeaseWatchdog))
	assert.Equal(t, 300*time.Millisecond, mr.TTL("lock:dog"))

	mr.SetTTL("lock:dog", 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL("lock:dog") == 300*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("lock:dog"))
}

// =============================================================================
// 公平锁
// =============================================================================

func TestRedisFair_Order(t *testing.T) {
	mr, p := setupMiniredis(t)
	const key = "lock:fair"
	queue := "xdlock_queue:{" + key + "}"

	a := ownerCtx("a")
	require.NoError(t, p.Fair(key).Lock(a, 10*time.Second))

	var bAcquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Fair(key).Lock(ownerCtx("b"), 10*time.Second); err == nil {
			bAcquired.Store(true)
		}
	}()

	require.Eventually(t, func() bool {
		list, err := mr.List(queue)
		return err == nil && len(list) == 1 && list[0] == "b"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Fair(key).Unlock(a))

	// c 后到，即使锁空闲也不能插队
	ok, err := p.Fair(key).TryLock(ownerCtx("c"), 0, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	<-done
	assert.True(t, bAcquired.Load())
	assert.Equal(t, "1", mr.HGet(key, "b"))

	// c 放弃后离开队列
	list, _ := mr.List(queue)
	assert.NotContains(t, list, "c")
	require.NoError(t, p.Fair(key).Unlock(ownerCtx("b")))
}

func TestRedisFair_StaleHead(t *testing.T) {
	mr, p := setupMiniredis(t)
	const key = "lock:fair-stale"

	// 截止时间已过的排队者会被清理
	_, err := mr.Push("xdlock_queue:{"+key+"}", "ghost")
	require.NoError(t, err)
	_, err = mr.ZAdd("xdlock_timeout:{"+key+"}", 1, "ghost")
	require.NoError(t, err)

	ok, err := p.Fair(key).TryLock(ownerCtx("b"), 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("xdlock_queue:{"+key+"}"))
	require.NoError(t, p.Fair(key).Unlock(ownerCtx("b")))
}

func TestRedisFair_Reentrant(t *testing.T) {
	_, p := setupMiniredis(t)
	a := ownerCtx("a")

	require.NoError(t, p.Fair("lock:fair-re").Lock(a, time.Second))
	ok, err := p.Fair("lock:fair-re").TryLock(a, 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, p.Fair("lock:fair-re").Unlock(a))
	require.NoError(t, p.Fair("lock:fair-re").Unlock(a))
}

// =============================================================================
// 读写锁
// =============================================================================

func TestRedisReadWrite(t *testing.T) {
	mr, p := setupMiniredis(t)
	const key = "lock:rw"
	r1, r2, w := ownerCtx("r1"), ownerCtx("r2"), ownerCtx("w")
	rw := p.ReadWrite(key)
	assert.Equal(t, key, rw.Key())

	tryLock := func(ctx context.Context, l xdlock.Locker) bool {
		ok, err := l.TryLock(ctx, 0, 10*time.Second)
		require.NoError(t, err)
		return ok
	}

	t.Run("读锁共享", func(t *testing.T) {
		assert.True(t, tryLock(r1, rw.ReadLock()))
		assert.True(t, tryLock(r2, rw.ReadLock()))
		assert.Equal(t, "read", mr.HGet(key, "mode"))
	})

	t.Run("读锁持有时写锁互斥", func(t *testing.T) {
		assert.False(t, tryLock(w, rw.WriteLock()))
		require.NoError(t, rw.ReadLock().Unlock(r1))
		assert.False(t, tryLock(w, rw.WriteLock()))
		require.NoError(t, rw.ReadLock().Unlock(r2))
		assert.False(t, mr.Exists(key))
	})

	t.Run("写锁排斥读锁和其他写锁", func(t *testing.T) {
		assert.True(t, tryLock(w, rw.WriteLock()))
		assert.False(t, tryLock(r1, rw.ReadLock()))
		assert.False(t, tryLock(r2, rw.WriteLock()))
		assert.ErrorIs(t, rw.WriteLock().Unlock(r1), xdlock.ErrNotLocked)
	})

	t.Run("写锁持有者可获取读锁", func(t *testing.T) {
		assert.True(t, tryLock(w, rw.ReadLock()))
		require.NoError(t, rw.WriteLock().Unlock(w))
		assert.Equal(t, "read", mr.HGet(key, "mode"))

		assert.True(t, tryLock(r1, rw.ReadLock()))
		require.NoError(t, rw.ReadLock().Unlock(r1))
		require.NoError(t, rw.ReadLock().Unlock(w))
		assert.False(t, mr.Exists(key))
	})
}

// =============================================================================
// 熔断与健康检查
// =============================================================================

func TestRedisBreaker(t *testing.T) {
	mr, p := setupMiniredis(t, xdlock.WithBreaker(gobreaker.Settings{
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
		Timeout:     time.Minute,
	}))
	ctx := ownerCtx("a")
	mr.SetError("ERR injected failure")

	for range 2 {
		_, err := p.Reentrant("lock:cb").TryLock(ctx, 0, time.Second)
		require.Error(t, err)
		assert.False(t, errors.Is(err, xdlock.ErrProviderUnavailable))
	}

	mr.SetError("")
	_, err := p.Reentrant("lock:cb").TryLock(ctx, 0, time.Second)
	assert.ErrorIs(t, err, xdlock.ErrProviderUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestRedisHealthAndClose(t *testing.T) {
	_, p := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, p.Health(ctx))
	require.NoError(t, p.Close(ctx))
	require.NoError(t, p.Close(ctx))

	assert.ErrorIs(t, p.Health(ctx), xdlock.ErrProviderUnavailable)
	_, err := p.Reentrant("lock:closed").TryLock(ctx, 0, time.Second)
	assert.ErrorIs(t, err, xdlock.ErrProviderUnavailable)
}

// =============================================================================
// 持有者
// =============================================================================

func TestOwner(t *testing.T) {
	ctx := context.Background()
	_, ok := xdlock.OwnerFrom(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, xdlock.WithOwner(ctx, ""))

	ctx2, owner := xdlock.EnsureOwner(ctx)
	assert.NotEmpty(t, owner)
	got, ok := xdlock.OwnerFrom(ctx2)
	assert.True(t, ok)
	assert.Equal(t, owner, got)

	ctx3, again := xdlock.EnsureOwner(ctx2)
	assert.Equal(t, owner, again)
	assert.Equal(t, ctx2, ctx3)
}
