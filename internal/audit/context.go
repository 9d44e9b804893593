package audit

import "context"

type clientKey struct{}

// WithClient attaches the caller's address to ctx for audit entries.
func WithClient(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientKey{}, addr)
}

func clientFromContext(ctx context.Context) string {
	if addr, ok := ctx.Value(clientKey{}).(string); ok && addr != "" {
		return addr
	}
	return "unknown"
}
