package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limiter enforces the token bucket. Required.
	Limiter ratelimiter.RateLimiter
	// KeyFunc derives the bucket key for a request (default: CallerKey).
	KeyFunc func(ctx handler.Context) string
	// SetHeaders adds X-RateLimit-* headers to every decorated response.
	SetHeaders bool
}

// RateLimit enforces a per-caller request budget using the configured
// limiter. Blocked requests get 429 with a retry_after detail; limiter
// store failures surface as 500. Panics if no limiter is provided.
//
// Usage:
//
//	r.Use(middleware.RateLimit[*app.Context](middleware.RateLimitConfig{
//		Limiter:    limiter,
//		SetHeaders: true,
//	}))
func RateLimit[C handler.Context](cfg RateLimitConfig) handler.Middleware[C] {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = CallerKey
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			result, err := cfg.Limiter.Allow(ctx.Request().Context(), cfg.KeyFunc(ctx))
			if err != nil {
				return response.Error(response.ErrInternalServerError.WithError(err))
			}

			var resp handler.Response
			if result.Allowed() {
				resp = next(ctx)
			} else {
				resp = rejectRateLimited(result)
			}

			if cfg.SetHeaders {
				resp = withRateLimitHeaders(resp, result)
			}
			return resp
		}
	}
}

// CallerKey is the default rate limit key: the authenticated user id when
// the auth middleware ran, otherwise the client IP. Signed-in users never
// share a bucket with their NAT neighbours.
func CallerKey(ctx handler.Context) string {
	if userID, ok := GetUserID(ctx); ok {
		return "user:" + userID
	}
	if ip, ok := GetClientIP(ctx); ok {
		return "ip:" + ip
	}
	return "ip:" + ctx.Request().RemoteAddr
}

func rejectRateLimited(result *ratelimiter.Result) handler.Response {
	err := response.ErrTooManyRequests
	if retry := result.RetryAfter(); retry > 0 {
		err = err.WithDetails(map[string]any{
			"retry_after": strconv.Itoa(ceilSeconds(retry)),
		})
	}
	return response.Error(err)
}

// withRateLimitHeaders decorates the response with the standard limit
// headers. Remaining is clamped at zero even when the bucket is overdrawn.
func withRateLimitHeaders(resp handler.Response, result *ratelimiter.Result) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if retry := result.RetryAfter(); retry > 0 {
			h.Set("Retry-After", strconv.Itoa(ceilSeconds(retry)))
		}

		return resp(w, r)
	}
}

// ceilSeconds rounds a positive wait up to whole seconds, so a blocked
// client is never told to retry in zero seconds.
func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
