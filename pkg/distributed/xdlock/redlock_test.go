package xdlock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlockkit/pkg/distributed/xdlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

func setupRedlock(t *testing.T, opts ...xdlock.Option) (*miniredis.Miniredis, xdlock.Provider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts = append([]xdlock.Option{
		xdlock.WithRetryInterval(5 * time.Millisecond),
		xdlock.WithLogger(xlog.Discard()),
	}, opts...)
	p, err := xdlock.NewRedlockProvider([]redis.UniversalClient{client}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return mr, p
}

func TestNewRedlockProvider_Errors(t *testing.T) {
	_, err := xdlock.NewRedlockProvider(nil)
	assert.ErrorIs(t, err, xdlock.ErrNilClient)

	_, err = xdlock.NewRedlockProvider([]redis.UniversalClient{nil})
	assert.ErrorIs(t, err, xdlock.ErrNilClient)
}

func TestRedlock_Mutex(t *testing.T) {
	mr, p := setupRedlock(t)
	a, b := ownerCtx("a"), ownerCtx("b")
	const key = "lock:redlock"

	ok, err := p.Reentrant(key).TryLock(a, 0, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(key))

	t.Run("同一持有者进程内重入", func(t *testing.T) {
		ok, err := p.Reentrant(key).TryLock(a, 0, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, p.Reentrant(key).Unlock(a))
		assert.True(t, mr.Exists(key))
	})

	t.Run("其他持有者等待超时", func(t *testing.T) {
		ok, err := p.Reentrant(key).TryLock(b, 30*time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, p.Reentrant(key).Unlock(b), xdlock.ErrNotLocked)
	})

	t.Run("释放后可获取", func(t *testing.T) {
		require.NoError(t, p.Reentrant(key).Unlock(a))
		assert.False(t, mr.Exists(key))

		ok, err := p.Reentrant(key).TryLock(b, 0, time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, p.Reentrant(key).Unlock(b))
	})
}

func TestRedlock_Unsupported(t *testing.T) {
	_, p := setupRedlock(t)
	ctx := context.Background()

	_, err := p.Fair("lock:f").TryLock(ctx, 0, time.Second)
	assert.ErrorIs(t, err, xdlock.ErrUnsupported)
	assert.ErrorIs(t, p.ReadWrite("lock:rw").ReadLock().Lock(ctx, time.Second), xdlock.ErrUnsupported)
	assert.ErrorIs(t, p.ReadWrite("lock:rw").WriteLock().Unlock(ctx), xdlock.ErrUnsupported)
	assert.Equal(t, "lock:rw", p.ReadWrite("lock:rw").Key())
}

func TestRedlock_Watchdog(t *testing.T) {
	mr, p := setupRedlock(t, xdlock.WithWatchdogTimeout(300*time.Millisecond))
	ctx := ownerCtx("a")
	const key = "lock:redlock-dog"

	require.NoError(t, p.Reentrant(key).Lock(ctx, xdlock.LeaseWatchdog))
	mr.SetTTL(key, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL(key) == 300*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Reentrant(key).Unlock(ctx))
}

func TestRedlock_CloseReleasesHeld(t *testing.T) {
	mr, p := setupRedlock(t)
	ctx := context.Background()

	require.NoError(t, p.Reentrant("lock:close").Lock(ownerCtx("a"), 10*time.Second))
	require.NoError(t, p.Health(ctx))
	require.NoError(t, p.Close(ctx))

	assert.False(t, mr.Exists("lock:close"))
	assert.ErrorIs(t, p.Health(ctx), xdlock.ErrProviderUnavailable)
}
