package xdlock

import (
	"context"
	"sync"
)

// holdTable 进程内重入计数，用于本身不支持重入的后端。
//
// 只有同一个持有者才会命中计数；不同持有者之间仍经由后端互斥。
type holdTable struct {
	mu sync.Mutex
	m  map[holdKey]*hold
}

type holdKey struct {
	key   string
	owner string
}

type hold struct {
	count   int
	release func(ctx context.Context) error
}

// enter 已持有时计数加一并返回 true
func (t *holdTable) enter(key, owner string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.m[holdKey{key, owner}]
	if !ok {
		return false
	}
	h.count++
	return true
}

// add 记录一次新获取。并发的同一持有者先后获取成功时合并计数，
// 后到者的 release 立即执行。
func (t *holdTable) add(ctx context.Context, key, owner string, release func(ctx context.Context) error) error {
	t.mu.Lock()
	if t.m == nil {
		t.m = make(map[holdKey]*hold)
	}
	hk := holdKey{key, owner}
	if h, ok := t.m[hk]; ok {
		h.count++
		t.mu.Unlock()
		return release(ctx)
	}
	t.m[hk] = &hold{count: 1, release: release}
	t.mu.Unlock()
	return nil
}

// leave 释放一次持有。最后一次释放时返回 release。
func (t *holdTable) leave(key, owner string) (release func(ctx context.Context) error, held bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hk := holdKey{key, owner}
	h, ok := t.m[hk]
	if !ok {
		return nil, false
	}
	h.count--
	if h.count > 0 {
		return nil, true
	}
	delete(t.m, hk)
	return h.release, true
}

// drain 清空计数并返回所有 release
func (t *holdTable) drain() []func(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]func(ctx context.Context) error, 0, len(t.m))
	for hk, h := range t.m {
		out = append(out, h.release)
		delete(t.m, hk)
	}
	return out
}
