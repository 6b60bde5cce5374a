package xcron

import (
	"sync"
	"sync/atomic"
	"time"
)

// JobStats 单个任务的执行统计快照
type JobStats struct {
	Runs      int64
	Successes int64
	Failures  int64
	// Skipped 因锁被其他副本持有而跳过的次数
	Skipped      int64
	LastRun      time.Time
	LastDuration time.Duration
	LastError    string
}

// Stats 调度器执行统计，并发安全。
type Stats struct {
	runs      atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	skipped   atomic.Int64

	mu   sync.RWMutex
	jobs map[string]*JobStats
}

func newStats() *Stats {
	return &Stats{jobs: make(map[string]*JobStats)}
}

// Runs 实际执行次数（不含跳过）
func (s *Stats) Runs() int64 { return s.runs.Load() }

// Successes 成功次数
func (s *Stats) Successes() int64 { return s.successes.Load() }

// Failures 失败次数，包括获取锁出错、超时和 panic
func (s *Stats) Failures() int64 { return s.failures.Load() }

// Skipped 跳过次数
func (s *Stats) Skipped() int64 { return s.skipped.Load() }

// Job 返回指定任务的统计快照，任务从未触发时 ok 为 false。
func (s *Stats) Job(name string) (JobStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	js, ok := s.jobs[name]
	if !ok {
		return JobStats{}, false
	}
	return *js, true
}

func (s *Stats) job(name string) *JobStats {
	js, ok := s.jobs[name]
	if !ok {
		js = &JobStats{}
		s.jobs[name] = js
	}
	return js
}

func (s *Stats) recordSkip(name string) {
	s.skipped.Add(1)
	s.mu.Lock()
	s.job(name).Skipped++
	s.mu.Unlock()
}

func (s *Stats) recordRun(name string, start time.Time, err error) {
	s.runs.Add(1)
	if err == nil {
		s.successes.Add(1)
	} else {
		s.failures.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	js := s.job(name)
	js.Runs++
	js.LastRun = start
	js.LastDuration = time.Since(start)
	if err == nil {
		js.Successes++
		js.LastError = ""
	} else {
		js.Failures++
		js.LastError = err.Error()
	}
}
