package xdlock

import "github.com/redis/go-redis/v9"

// 脚本返回值约定
const (
	scriptOK       = 1  // 获取成功 / 当前持有者已完全释放 / 续期成功
	scriptHeld     = 0  // 被他人持有 / 当前持有者仍有重入 / 锁已丢失
	scriptNotOwner = -1 // 当前持有者未持有该锁
)

// =============================================================================
// 可重入锁
// =============================================================================
//
// 锁为 hash：field 为持有者，value 为重入次数。

// KEYS[1] 锁；ARGV[1] 租期毫秒；ARGV[2] 持有者
var reentrantAcquireScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 0 or redis.call('hexists', KEYS[1], ARGV[2]) == 1 then
	redis.call('hincrby', KEYS[1], ARGV[2], 1)
	redis.call('pexpire', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// 部分释放保留当前 TTL，由外层的租期或看门狗决定何时过期。
// KEYS[1] 锁；ARGV[1] 持有者
var reentrantReleaseScript = redis.NewScript(`
if redis.call('hexists', KEYS[1], ARGV[1]) == 0 then
	return -1
end
if redis.call('hincrby', KEYS[1], ARGV[1], -1) > 0 then
	return 0
end
redis.call('del', KEYS[1])
return 1
`)

// 续期只延长不缩短，嵌套获取时可能已设置了更长的 TTL。
// KEYS[1] 锁；ARGV[1] 租期毫秒；ARGV[2] 持有者字段
var renewScript = redis.NewScript(`
if redis.call('hexists', KEYS[1], ARGV[2]) == 0 then
	return 0
end
if redis.call('pttl', KEYS[1]) < tonumber(ARGV[1]) then
	redis.call('pexpire', KEYS[1], ARGV[1])
end
return 1
`)

// =============================================================================
// 公平锁
// =============================================================================
//
// 在可重入锁的基础上增加等待队列（list）和排队截止时间（zset）。
// 只有队首才能在锁空闲时获取，超过截止时间未轮询的排队者会被清理。

// KEYS[1] 锁；KEYS[2] 队列；KEYS[3] 截止时间
// ARGV[1] 租期毫秒；ARGV[2] 持有者；ARGV[3] 当前毫秒时间戳
// ARGV[4] 本次排队截止时间；ARGV[5] 队列 key 的 TTL 毫秒
var fairAcquireScript = redis.NewScript(`
local now = tonumber(ARGV[3])
while true do
	local head = redis.call('lindex', KEYS[2], 0)
	if not head then
		break
	end
	local deadline = redis.call('zscore', KEYS[3], head)
	if deadline and tonumber(deadline) > now then
		break
	end
	redis.call('lpop', KEYS[2])
	redis.call('zrem', KEYS[3], head)
end

if redis.call('hexists', KEYS[1], ARGV[2]) == 1 then
	redis.call('hincrby', KEYS[1], ARGV[2], 1)
	redis.call('pexpire', KEYS[1], ARGV[1])
	return 1
end

if redis.call('exists', KEYS[1]) == 0 then
	local head = redis.call('lindex', KEYS[2], 0)
	if (not head) or head == ARGV[2] then
		if head then
			redis.call('lpop', KEYS[2])
			redis.call('zrem', KEYS[3], ARGV[2])
		end
		redis.call('hset', KEYS[1], ARGV[2], 1)
		redis.call('pexpire', KEYS[1], ARGV[1])
		return 1
	end
end

if not redis.call('zscore', KEYS[3], ARGV[2]) then
	redis.call('rpush', KEYS[2], ARGV[2])
end
redis.call('zadd', KEYS[3], ARGV[4], ARGV[2])
redis.call('pexpire', KEYS[2], ARGV[5])
redis.call('pexpire', KEYS[3], ARGV[5])
return 0
`)

// 放弃等待时离开队列。
// KEYS[1] 队列；KEYS[2] 截止时间；ARGV[1] 持有者
var fairCancelScript = redis.NewScript(`
redis.call('lrem', KEYS[1], 0, ARGV[1])
redis.call('zrem', KEYS[2], ARGV[1])
return 1
`)

// =============================================================================
// 读写锁
// =============================================================================
//
// 锁为 hash：mode 字段为 read 或 write，读者字段为 "r:"+持有者，
// 写者字段为 "w:"+持有者。写锁持有者可以同时获取读锁。

// KEYS[1] 锁；ARGV[1] 租期毫秒；ARGV[2] 读者字段；ARGV[3] 同一持有者的写者字段
var readAcquireScript = redis.NewScript(`
local mode = redis.call('hget', KEYS[1], 'mode')
if not mode then
	redis.call('hset', KEYS[1], 'mode', 'read', ARGV[2], 1)
	redis.call('pexpire', KEYS[1], ARGV[1])
	return 1
end
if mode == 'read' or redis.call('hexists', KEYS[1], ARGV[3]) == 1 then
	redis.call('hincrby', KEYS[1], ARGV[2], 1)
	if redis.call('pttl', KEYS[1]) < tonumber(ARGV[1]) then
		redis.call('pexpire', KEYS[1], ARGV[1])
	end
	return 1
end
return 0
`)

// KEYS[1] 锁；ARGV[1] 租期毫秒；ARGV[2] 写者字段
var writeAcquireScript = redis.NewScript(`
local mode = redis.call('hget', KEYS[1], 'mode')
if not mode then
	redis.call('hset', KEYS[1], 'mode', 'write', ARGV[2], 1)
	redis.call('pexpire', KEYS[1], ARGV[1])
	return 1
end
if mode == 'write' and redis.call('hexists', KEYS[1], ARGV[2]) == 1 then
	redis.call('hincrby', KEYS[1], ARGV[2], 1)
	if redis.call('pttl', KEYS[1]) < tonumber(ARGV[1]) then
		redis.call('pexpire', KEYS[1], ARGV[1])
	end
	return 1
end
return 0
`)

// 返回 1 表示该读者已完全释放，其他读者可能仍持有锁。
// KEYS[1] 锁；ARGV[1] 读者字段
var readReleaseScript = redis.NewScript(`
if redis.call('hexists', KEYS[1], ARGV[1]) == 0 then
	return -1
end
if redis.call('hincrby', KEYS[1], ARGV[1], -1) > 0 then
	return 0
end
redis.call('hdel', KEYS[1], ARGV[1])
if redis.call('hlen', KEYS[1]) <= 1 then
	redis.call('del', KEYS[1])
end
return 1
`)

// KEYS[1] 锁；ARGV[1] 写者字段
var writeReleaseScript = redis.NewScript(`
if redis.call('hget', KEYS[1], 'mode') ~= 'write' or redis.call('hexists', KEYS[1], ARGV[1]) == 0 then
	return -1
end
if redis.call('hincrby', KEYS[1], ARGV[1], -1) > 0 then
	return 0
end
redis.call('hdel', KEYS[1], ARGV[1])
if redis.call('hlen', KEYS[1]) > 1 then
	redis.call('hset', KEYS[1], 'mode', 'read')
else
	redis.call('del', KEYS[1])
end
return 1
`)
