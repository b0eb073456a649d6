package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// trustedProxies is the set of networks whose forwarding headers are believed.
type trustedProxies []*net.IPNet

func parseTrustedProxies(entries []string) trustedProxies {
	var nets trustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			// A bare address trusts that host only.
			if ip := net.ParseIP(entry); ip != nil {
				bits := 128
				if ip.To4() != nil {
					bits = 32
				}
				entry += "/" + strconv.Itoa(bits)
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			slog.Warn("realip: skipping invalid trusted proxy", "entry", entry, "error", err)
			continue
		}
		nets = append(nets, network)
	}
	return nets
}

func (t trustedProxies) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range t {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// TrustedRealIP replaces RemoteAddr with the client address from X-Real-IP or
// the first X-Forwarded-For entry, but only when the connection comes from one
// of trustedCIDRs. Other clients cannot spoof their address to dodge the rate
// limiter or appear under another IP in import logs.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trusted := parseTrustedProxies(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trusted.contains(hostIP(r.RemoteAddr)) {
				if ip := forwardedIP(r.Header); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedIP returns the first valid client address a proxy reported.
func forwardedIP(h http.Header) net.IP {
	if rip := strings.TrimSpace(h.Get("X-Real-IP")); rip != "" {
		return net.ParseIP(rip)
	}
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return net.ParseIP(strings.TrimSpace(first))
	}
	return nil
}

// hostIP parses the address part of host:port or a bare IP.
func hostIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
