package xcron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// 错误定义
var (
	ErrNilJob     = errors.New("xcron: job cannot be nil")
	ErrEmptyName  = errors.New("xcron: job name cannot be empty")
	ErrDuplicated = errors.New("xcron: job name already registered")
	ErrJobPanic   = errors.New("xcron: job panicked")
)

// JobID 任务标识，用于 Remove。
type JobID = cron.EntryID

// Scheduler 基于 robfig/cron/v3 的调度器，任务通过 xlock.Guard 在多副本间互斥。
type Scheduler struct {
	cron   *cron.Cron
	guard  *xlock.Guard
	logger xlog.Logger
	stats  *Stats

	mu    sync.Mutex
	names map[string]JobID

	immediateWg     sync.WaitGroup
	immediateCtx    context.Context
	immediateCancel context.CancelFunc
}

// New 创建调度器。guard 为 nil 时任务不加锁。
func New(guard *xlock.Guard, opts ...SchedulerOption) *Scheduler {
	o := defaultSchedulerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	immediateCtx, immediateCancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(o.location), cron.WithParser(o.parser)),
		guard:           guard,
		logger:          o.logger,
		stats:           newStats(),
		names:           make(map[string]JobID),
		immediateCtx:    immediateCtx,
		immediateCancel: immediateCancel,
	}
}

// AddFunc 按 cron 表达式注册任务。
//
// name 在调度器内唯一，同时用于锁名中的 {job}，
// 因此不同副本上同名任务共享同一把锁。
func (s *Scheduler) AddFunc(spec, name string, fn func(ctx context.Context) error, opts ...JobOption) (JobID, error) {
	if fn == nil {
		return 0, ErrNilJob
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}

	jo := defaultJobOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(jo)
		}
	}
	if err := jo.spec.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicated, name)
	}

	w := &jobWrapper{
		name:   name,
		fn:     fn,
		guard:  s.guard,
		opts:   jo,
		logger: s.logger,
		stats:  s.stats,
	}
	id, err := s.cron.AddJob(spec, w)
	if err != nil {
		return 0, fmt.Errorf("xcron: add job %s: %w", name, err)
	}
	s.names[name] = id

	if jo.immediate {
		s.immediateWg.Add(1)
		go func() {
			defer s.immediateWg.Done()
			iw := *w
			iw.baseCtx = s.immediateCtx
			iw.Run()
		}()
	}
	return id, nil
}

// Remove 移除任务，正在执行的不受影响。
func (s *Scheduler) Remove(id JobID) {
	s.mu.Lock()
	for name, jid := range s.names {
		if jid == id {
			delete(s.names, name)
			break
		}
	}
	s.mu.Unlock()
	s.cron.Remove(id)
}

// Start 启动调度（非阻塞），重复调用无效果。
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度，返回的 context 在所有运行中的任务结束后 Done。
// WithImmediate 启动的执行会被取消并等待结束。
func (s *Scheduler) Stop() context.Context {
	s.immediateCancel()
	ctx := s.cron.Stop()
	s.immediateWg.Wait()
	return ctx
}

// Entries 返回已注册的任务。
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Stats 返回执行统计。
func (s *Scheduler) Stats() *Stats {
	return s.stats
}
