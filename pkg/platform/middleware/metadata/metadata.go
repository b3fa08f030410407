// Package metadata records the caller's address and User-Agent on the
// request context. Forwarding headers count only when the direct peer is a
// configured proxy.
package metadata

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"orbit/pkg/requestcontext"
)

// MaxForwardedHeaderLength bounds X-Forwarded-For and X-Real-IP.
const MaxForwardedHeaderLength = 500

const unknownIP = "unknown"

type Config struct {
	TrustedProxies []netip.Prefix
}

// ParseTrustedProxies reads CIDRs such as "10.0.0.0/8". A bare address
// becomes a single-host prefix.
func ParseTrustedProxies(cidrs []string) (*Config, error) {
	cfg := &Config{}
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := parsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		cfg.TrustedProxies = append(cfg.TrustedProxies, prefix)
	}
	return cfg, nil
}

func parsePrefix(raw string) (netip.Prefix, error) {
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		return prefix.Masked(), err
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

type Middleware struct {
	trusted []netip.Prefix
}

// NewMiddleware accepts a nil Config, which trusts no proxy.
func NewMiddleware(cfg *Config) *Middleware {
	m := &Middleware{}
	if cfg != nil {
		m.trusted = cfg.TrustedProxies
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP walks X-Forwarded-For from the right and returns the first hop
// that is not a trusted proxy. Entries left of that hop are client supplied
// and ignored. X-Real-IP is consulted only when X-Forwarded-For is absent.
func (m *Middleware) clientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return unknownIP
	}
	if !m.trusts(peer) {
		return peer.String()
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		joined := strings.Join(xff, ",")
		if len(joined) > MaxForwardedHeaderLength {
			return peer.String()
		}
		hops := strings.Split(joined, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return peer.String()
			}
			hop = hop.Unmap()
			if !m.trusts(hop) {
				return hop.String()
			}
		}
		return peer.String()
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" && len(realIP) <= MaxForwardedHeaderLength {
		if addr, err := netip.ParseAddr(realIP); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer.String()
}

func (m *Middleware) trusts(addr netip.Addr) bool {
	for _, prefix := range m.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// peerAddr parses RemoteAddr with or without a port.
func peerAddr(remote string) (netip.Addr, bool) {
	if remote == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap().WithZone(""), true
	}
	addr, err := netip.ParseAddr(strings.Trim(remote, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}
