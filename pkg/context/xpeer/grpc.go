package xpeer

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xlockkit/pkg/context/xctx"
)

// Metadata Key 名称（遵循小写加连字符的 gRPC 惯例）
const (
	MetaForwardedFor = "x-forwarded-for"
	MetaRealIP       = "x-real-ip"
	MetaTenantID     = "x-tenant-id"
	MetaRequestID    = "x-request-id"
)

// ExtractFromIncomingContext 从 gRPC 入站 context 提取调用方身份。
func ExtractFromIncomingContext(ctx context.Context, opts ...Option) xctx.Identity {
	if ctx == nil {
		return xctx.Identity{}
	}
	return extractGRPC(ctx, applyOptions(opts))
}

func extractGRPC(ctx context.Context, cfg *config) xctx.Identity {
	md, _ := metadata.FromIncomingContext(ctx)

	var remote string
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		remote = p.Addr.String()
	}

	id := xctx.Identity{
		ClientIP: resolveClientIP(
			getMetadataValue(md, MetaForwardedFor),
			getMetadataValue(md, MetaRealIP),
			remote,
			cfg.trusted,
		),
		TenantID:  getMetadataValue(md, MetaTenantID),
		RequestID: getMetadataValue(md, MetaRequestID),
	}
	if cfg.userIDHeader != "" {
		id.UserID = getMetadataValue(md, strings.ToLower(cfg.userIDHeader))
	}
	return id
}

// UnaryServerInterceptor 返回 gRPC 一元拦截器，把调用方身份注入 context。
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)

	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := inject(ctx, extractGRPC(ctx, cfg))
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		return handler(ctx, req)
	}
}

// getMetadataValue 取第一个值并去除首尾空白
func getMetadataValue(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
