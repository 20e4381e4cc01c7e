package flasky

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's address to ctx. The Engine uses it for
// account event logs, audit events and per-address attempt limiting.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// ClientIPFromContext returns the address attached with WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	return clientIPFromContext(ctx)
}
