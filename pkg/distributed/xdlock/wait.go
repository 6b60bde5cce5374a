package xdlock

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
)

// waitFor 反复调用 attempt 直到获取成功、wait 耗尽或 ctx 结束。
//
// block 为 true 时忽略 wait，只在成功或 ctx 结束时返回。
// wait 耗尽返回 (false, nil)，ctx 结束返回 ctx 的错误，
// attempt 返回的错误立即终止等待。
func waitFor(ctx context.Context, wait time.Duration, block bool, interval time.Duration,
	attempt func() (bool, error)) (bool, error) {
	if !block && wait <= 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return attempt()
	}

	loopCtx := ctx
	if !block {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	jitter := interval / 2
	if jitter <= 0 {
		jitter = 1
	}

	err := retry.New(
		retry.Context(loopCtx),
		retry.UntilSucceeded(),
		retry.Delay(interval),
		retry.MaxJitter(jitter),
		retry.DelayType(retry.CombineDelay(retry.FixedDelay, retry.RandomDelay)),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errNotAcquired) }),
		retry.LastErrorOnly(true),
	).Do(func() error {
		ok, err := attempt()
		if err != nil {
			return err
		}
		if !ok {
			return errNotAcquired
		}
		return nil
	})
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if loopCtx.Err() != nil || errors.Is(err, errNotAcquired) {
		return false, nil
	}
	return false, err
}
