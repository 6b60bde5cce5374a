package xpeer

import (
	"context"
	"net/http"
	"strings"

	"go4.org/netipx"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

// HTTP Header 名称
const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
	HeaderUserID       = "X-User-ID"
	HeaderTenantID     = "X-Tenant-ID"
	HeaderRequestID    = "X-Request-ID"
)

// ClientIP 计算 HTTP 请求的调用方 IP。
//
// trusted 为 nil 时总是采信转发头。
func ClientIP(r *http.Request, trusted *netipx.IPSet) string {
	if r == nil {
		return ""
	}
	return resolveClientIP(
		r.Header.Get(HeaderForwardedFor),
		r.Header.Get(HeaderRealIP),
		r.RemoteAddr,
		trusted,
	)
}

// ExtractFromHTTPRequest 从请求中提取调用方身份。
func ExtractFromHTTPRequest(r *http.Request, opts ...Option) xctx.Identity {
	if r == nil {
		return xctx.Identity{}
	}
	cfg := applyOptions(opts)
	return extractHTTP(r, cfg)
}

func extractHTTP(r *http.Request, cfg *config) xctx.Identity {
	id := xctx.Identity{
		ClientIP:  ClientIP(r, cfg.trusted),
		TenantID:  strings.TrimSpace(r.Header.Get(HeaderTenantID)),
		RequestID: strings.TrimSpace(r.Header.Get(HeaderRequestID)),
	}
	if cfg.userIDHeader != "" {
		id.UserID = strings.TrimSpace(r.Header.Get(cfg.userIDHeader))
	}
	return id
}

// HTTPMiddleware 返回 HTTP 中间件，把调用方身份注入请求 context。
//
// 已经存在于 context 的 UserID（例如认证中间件先写入）不会被请求头覆盖。
func HTTPMiddleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := inject(r.Context(), extractHTTP(r, cfg))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// inject 写入身份信息，保留 context 中已有的 UserID。
func inject(ctx context.Context, id xctx.Identity) (context.Context, error) {
	if ctx == nil {
		return nil, xctx.ErrNilContext
	}
	if xctx.UserID(ctx) != "" {
		id.UserID = ""
	}
	return xctx.WithIdentity(ctx, id)
}
