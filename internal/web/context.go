package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/roster/internal/core"
)

// WithRequestMetadata tags ctx with the client address so import logs name
// who started a run. RemoteAddr has already been rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.ContextWithIPAddress(ctx, ip)
}
