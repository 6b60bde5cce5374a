package xpeer

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ErrInvalidProxy 可信代理配置无法解析
var ErrInvalidProxy = errors.New("xpeer: invalid trusted proxy")

// ParseTrustedProxies 将 CIDR 或单个 IP 列表解析为 IPSet。
//
// 空列表返回 (nil, nil)，表示信任所有来源的转发头。
func ParseTrustedProxies(entries []string) (*netipx.IPSet, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var b netipx.IPSetBuilder
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidProxy, entry, err)
			}
			b.AddPrefix(p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidProxy, entry, err)
		}
		b.Add(addr.Unmap())
	}
	return b.IPSet()
}

// resolveClientIP 按优先级计算调用方 IP。
//
// forwarded 为 X-Forwarded-For 原值，realIP 为 X-Real-IP 原值，
// remote 为连接远端地址（可带端口）。
func resolveClientIP(forwarded, realIP, remote string, trusted *netipx.IPSet) string {
	remoteAddr, remoteOK := parseHost(remote)

	if trustForwarded(remoteAddr, remoteOK, trusted) {
		if ip, ok := firstHop(forwarded); ok {
			return ip.String()
		}
		if ip, ok := parseHost(realIP); ok {
			return ip.String()
		}
	}

	if remoteOK {
		return remoteAddr.String()
	}
	// 远端地址不是 IP（如 unix socket 或测试桩），原样返回
	return strings.TrimSpace(remote)
}

// trustForwarded 判断是否采信转发头。
func trustForwarded(remote netip.Addr, ok bool, trusted *netipx.IPSet) bool {
	if trusted == nil {
		return true
	}
	return ok && trusted.Contains(remote)
}

// firstHop 取 X-Forwarded-For 的第一个合法地址。
func firstHop(forwarded string) (netip.Addr, bool) {
	if forwarded == "" {
		return netip.Addr{}, false
	}
	first, _, _ := strings.Cut(forwarded, ",")
	return parseHost(first)
}

// parseHost 解析 "ip" 或 "ip:port" 形式的地址。
func parseHost(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(s, "[]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
