package xlock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/omeyang/xlockkit/pkg/observability/xlog"
)

// HTTPParams 从请求中提取参与绑定的命名参数。
type HTTPParams func(r *http.Request) []Param

// QueryParams 默认参数提取：每个查询参数取第一个值。
func QueryParams(r *http.Request) []Param {
	q := r.URL.Query()
	params := make([]Param, 0, len(q))
	for name, vals := range q {
		if len(vals) > 0 {
			params = append(params, Arg(name, vals[0]))
		}
	}
	return params
}

// HTTPStatus 将锁错误映射为 HTTP 状态码：竞争失败为 429，其余为 500。
func HTTPStatus(err error) int {
	if IsContention(err) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// HTTPMiddleware 返回在持有 spec 声明的锁时处理请求的中间件。
//
// params 为 nil 时使用 QueryParams。锁在 handler 返回后释放；
// 获取失败时不会调用 handler，竞争失败返回 429 和 FailureMessage。
// 与 xpeer.HTTPMiddleware 组合使用时，xpeer 需要在外层，{@ip} 等占位符才有值。
func HTTPMiddleware(g *Guard, spec LockSpec, params HTTPParams) func(http.Handler) http.Handler {
	if params == nil {
		params = QueryParams
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served := false
			call := NewCallContext(r.Context(), append(params(r), Arg("request", r), Arg("writer", w))...)
			err := g.Run(r.Context(), spec, call, func(ctx context.Context) error {
				served = true
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err == nil {
				return
			}
			if served {
				// 响应已写出，只能记录
				g.logger.Warn(r.Context(), "xlock: lock error after response",
					slog.String("path", r.URL.Path), xlog.Err(err))
				return
			}
			writeLockError(w, err)
		})
	}
}

func writeLockError(w http.ResponseWriter, err error) {
	msg := http.StatusText(http.StatusInternalServerError)
	var le *LockError
	if errors.As(err, &le) && le.Status == StatusContention {
		msg = le.Msg
	}
	http.Error(w, msg, HTTPStatus(err))
}
