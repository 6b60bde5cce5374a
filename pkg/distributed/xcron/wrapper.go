package xcron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/omeyang/xlockkit/pkg/distributed/xlock"
	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// jobWrapper 实现 cron.Job，每次触发经由 Guard 获取任务锁后执行
type jobWrapper struct {
	name    string
	fn      func(ctx context.Context) error
	guard   *xlock.Guard
	opts    *jobOptions
	logger  xlog.Logger
	stats   *Stats
	baseCtx context.Context
}

// Run 实现 cron.Job 接口
func (w *jobWrapper) Run() {
	ctx := w.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if w.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.timeout)
		defer cancel()
	}

	start := time.Now()
	ran := false
	err := w.execute(ctx, func(ctx context.Context) error {
		ran = true
		return w.fn(ctx)
	})

	if !ran && xlock.IsContention(err) {
		w.stats.recordSkip(w.name)
		w.logger.Debug(ctx, "xcron: job locked by another instance, skipped",
			slog.String("job", w.name))
		return
	}

	w.stats.recordRun(w.name, start, err)
	if err != nil {
		w.logger.Error(ctx, "xcron: job failed",
			slog.String("job", w.name), slog.Duration("elapsed", time.Since(start)), xlog.Err(err))
		return
	}
	w.logger.Debug(ctx, "xcron: job completed",
		slog.String("job", w.name), slog.Duration("elapsed", time.Since(start)))
}

// execute 在任务锁内执行 body，panic 转为错误，避免中断调度协程
func (w *jobWrapper) execute(ctx context.Context, body func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanic, r)
		}
	}()

	if w.guard == nil {
		return body(ctx)
	}
	call := xlock.NewCallContext(ctx, xlock.Arg("job", w.name))
	return w.guard.Run(ctx, w.opts.spec, call, body)
}
