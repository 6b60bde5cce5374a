package xdlock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// renewFunc 续期一次。返回 false 表示锁已不属于当前持有者。
type renewFunc func(ctx context.Context) (bool, error)

// =============================================================================
// 看门狗
// =============================================================================

// watchdog 周期性续期一把锁，直到被停止或锁丢失。
type watchdog struct {
	key    string
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// stop 停止续期并等待续期 goroutine 退出，可重复调用。
func (w *watchdog) stop() {
	w.once.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *watchdog) run(interval time.Duration, renew renewFunc, logger xlog.Logger, onExit func()) {
	defer close(w.doneCh)
	defer onExit()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			// 单次续期超时不超过一个间隔，避免阻塞下一轮
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			held, err := renew(ctx)
			cancel()

			if err != nil {
				// 网络抖动时继续尝试，锁 TTL 仍有 2/3 的余量
				logger.Warn(context.Background(), "xdlock: watchdog renew failed",
					slog.String("key", w.key), xlog.Err(err))
				continue
			}
			if !held {
				logger.Warn(context.Background(), "xdlock: lock lost, watchdog stopped",
					slog.String("key", w.key))
				return
			}
		}
	}
}

// watchdogSet 跟踪 Provider 上所有运行中的看门狗，Close 时统一停止。
//
// 带 id 的看门狗按 (锁, 持有者) 唯一，任意句柄释放同一持有者的锁时都能停止它。
type watchdogSet struct {
	mu     sync.Mutex
	dogs   map[*watchdog]struct{}
	byID   map[string]*watchdog
	closed bool
}

// start 启动一个匿名看门狗。集合已关闭时返回 nil。
func (s *watchdogSet) start(key string, interval time.Duration, renew renewFunc, logger xlog.Logger) *watchdog {
	return s.startID("", key, interval, renew, logger)
}

// startID 启动 id 对应的看门狗，同一 id 已在运行时直接返回它。
// id 为空时不做去重。集合已关闭时返回 nil。
func (s *watchdogSet) startID(id, key string, interval time.Duration, renew renewFunc, logger xlog.Logger) *watchdog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if w, ok := s.byID[id]; ok && id != "" {
		return w
	}
	if s.dogs == nil {
		s.dogs = make(map[*watchdog]struct{})
		s.byID = make(map[string]*watchdog)
	}

	w := &watchdog{
		key:    key,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	s.dogs[w] = struct{}{}
	if id != "" {
		s.byID[id] = w
	}
	go w.run(interval, renew, logger, func() { s.remove(id, w) })
	return w
}

// stopID 停止 id 对应的看门狗，不存在时什么也不做
func (s *watchdogSet) stopID(id string) {
	s.mu.Lock()
	w := s.byID[id]
	// 先摘除，随后同一持有者重新获取时会启动新的看门狗
	delete(s.byID, id)
	s.mu.Unlock()
	if w != nil {
		w.stop()
	}
}

func (s *watchdogSet) remove(id string, w *watchdog) {
	s.mu.Lock()
	delete(s.dogs, w)
	// 锁丢失退出后同一 id 可能已被新的看门狗占用
	if id != "" && s.byID[id] == w {
		delete(s.byID, id)
	}
	s.mu.Unlock()
}

// stopAll 停止所有看门狗，之后 start 不再生效。
func (s *watchdogSet) stopAll() {
	s.mu.Lock()
	s.closed = true
	dogs := make([]*watchdog, 0, len(s.dogs))
	for w := range s.dogs {
		dogs = append(dogs, w)
	}
	s.mu.Unlock()

	for _, w := range dogs {
		w.stop()
	}
}

// running 返回运行中的看门狗数量
func (s *watchdogSet) running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dogs)
}
