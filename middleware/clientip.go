package middleware

import (
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/pkg/clientip"
)

type clientIPKey struct{}

// ClientIP resolves the caller's address once per request so the
// request logger and the rate limiter agree on who the peer is.
// Resolution order, proxy headers included, lives in pkg/clientip.
func ClientIP[C handler.Context]() handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			ctx.SetValue(clientIPKey{}, clientip.GetIP(ctx.Request()))
			return next(ctx)
		}
	}
}

// GetClientIP reads the address ClientIP stored for this request.
func GetClientIP(ctx handler.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPKey{}).(string)
	return ip, ok
}
