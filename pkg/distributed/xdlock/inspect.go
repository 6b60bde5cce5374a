package xdlock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockState Redis 中一把锁的快照，用于排查问题。
type LockState struct {
	Key    string
	Exists bool
	// Mode 读写锁的模式（read/write），其他锁为空。
	Mode string
	// Holders 持有者字段到重入次数。读写锁字段带 r:/w: 前缀；
	// Redlock 锁只有一个持有者，值为 1。
	Holders map[string]int64
	// TTL 剩余存活时间，不存在或未设置过期时为 0。
	TTL time.Duration
	// Queue 公平锁等待队列，队首在前。
	Queue []string
}

// InspectRedis 读取 key 在 Redis 中的锁状态，兼容 Redis 和 Redlock 两种提供者写入的结构。
func InspectRedis(ctx context.Context, client redis.UniversalClient, key string) (LockState, error) {
	if client == nil {
		return LockState{}, ErrNilClient
	}
	if err := validateKey(key); err != nil {
		return LockState{}, err
	}

	state := LockState{Key: key}
	typ, err := client.Type(ctx, key).Result()
	if err != nil {
		return state, err
	}

	switch typ {
	case "none":
	case "hash":
		fields, err := client.HGetAll(ctx, key).Result()
		if err != nil {
			return state, err
		}
		state.Exists = true
		state.Holders = make(map[string]int64, len(fields))
		for f, v := range fields {
			if f == "mode" {
				state.Mode = v
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return state, fmt.Errorf("xdlock: unexpected hold count %q for %s: %w", v, f, err)
			}
			state.Holders[f] = n
		}
	case "string":
		v, err := client.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return state, err
		}
		state.Exists = err == nil
		state.Holders = map[string]int64{v: 1}
	default:
		return state, fmt.Errorf("xdlock: %s is a %s, not a lock", key, typ)
	}

	if state.Exists {
		ttl, err := client.PTTL(ctx, key).Result()
		if err != nil {
			return state, err
		}
		if ttl > 0 {
			state.TTL = ttl
		}
	}

	queue, err := client.LRange(ctx, fairQueueKey(key), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return state, err
	}
	state.Queue = queue
	return state, nil
}
