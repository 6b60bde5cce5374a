package xdlock

import (
	"context"
	"strings"
	"time"
)

// LeaseWatchdog 表示不设固定租期，由看门狗持续续期。
const LeaseWatchdog time.Duration = -1

// =============================================================================
// 核心接口
// =============================================================================

// Locker 单个分布式锁句柄。
//
// 同一持有者（见 WithOwner）可以重复获取同一把可重入锁，
// 每次成功获取都需要对应一次 Unlock。
type Locker interface {
	// Lock 阻塞获取锁，直到成功或 ctx 结束。
	// lease <= 0 表示由看门狗续期。
	Lock(ctx context.Context, lease time.Duration) error

	// TryLock 在 wait 时间内尝试获取锁。
	// 获取成功返回 (true, nil)；wait 耗尽仍未获取返回 (false, nil)；
	// ctx 结束返回 ctx 的错误；后端故障返回相应错误。
	// wait <= 0 时只尝试一次。
	TryLock(ctx context.Context, wait, lease time.Duration) (bool, error)

	// Unlock 释放一次持有。
	// 锁不属于当前持有者时返回 ErrNotLocked。
	Unlock(ctx context.Context) error

	// Key 返回锁的 key。
	Key() string
}

// ReadWriteLocker 同一个 key 上的读写锁。
// 读锁之间共享，写锁与任何其他持有者的读锁、写锁互斥。
type ReadWriteLocker interface {
	ReadLock() Locker
	WriteLock() Locker
	Key() string
}

// Provider 分布式锁能力提供者。
//
// Provider 并发安全。不支持的锁类型返回的 Locker 在获取时报 ErrUnsupported。
type Provider interface {
	// Reentrant 返回 key 上的可重入互斥锁。
	Reentrant(key string) Locker

	// Fair 返回 key 上的公平锁，等待者按到达顺序获得锁。
	Fair(key string) Locker

	// ReadWrite 返回 key 上的读写锁。
	ReadWrite(key string) ReadWriteLocker

	// Health 检查后端连通性。
	Health(ctx context.Context) error

	// Close 停止所有看门狗并释放 Provider 持有的资源。
	// 不关闭调用方传入的客户端。
	Close(ctx context.Context) error
}

// =============================================================================
// 不支持的锁类型
// =============================================================================

type unsupportedLocker struct {
	key string
}

func (l unsupportedLocker) Lock(context.Context, time.Duration) error { return ErrUnsupported }

func (l unsupportedLocker) TryLock(context.Context, time.Duration, time.Duration) (bool, error) {
	return false, ErrUnsupported
}

func (l unsupportedLocker) Unlock(context.Context) error { return ErrUnsupported }

func (l unsupportedLocker) Key() string { return l.key }

type unsupportedRW struct {
	key string
}

func (rw unsupportedRW) ReadLock() Locker  { return unsupportedLocker(rw) }
func (rw unsupportedRW) WriteLock() Locker { return unsupportedLocker(rw) }
func (rw unsupportedRW) Key() string       { return rw.key }

// validateKey 空 key 或仅含空白的 key 非法
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
