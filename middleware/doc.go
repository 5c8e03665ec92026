// Package middleware provides the cross-cutting request layers of the HTTP
// stack: request identification, client IP resolution, access logging, CORS,
// cookie session authentication, silent token refresh, and rate limiting.
//
// Every middleware is a generic handler.Middleware[C] so a router with a
// custom context type keeps that type through the whole chain. Middleware
// that stores a value on the context pairs with a Get helper for reading it
// back in handlers:
//
//	func handleTasks(ctx *app.Context) handler.Response {
//		userID, _ := middleware.GetUserID(ctx)
//		requestID, _ := middleware.GetRequestID(ctx)
//		...
//	}
//
// # Ordering
//
// The chain order matters. RequestID and ClientIP run first so every later
// layer, logging included, sees the request id and the resolved peer. CORS
// runs before authentication so preflights never need a token. TokenRefresh
// runs app-wide and silently extends live sessions. Auth guards the route
// groups that require a user, and RateLimit sits inside those groups where
// its default key, the authenticated user id, is available:
//
//	r := router.New(
//		router.WithMiddleware(
//			middleware.RequestID[*app.Context](),
//			middleware.ClientIP[*app.Context](),
//			middleware.LoggingWithConfig[*app.Context](middleware.LoggingConfig{Logger: log}),
//			middleware.CORSWithConfig[*app.Context](corsConfig),
//			middleware.TokenRefresh[*app.Context](authSvc),
//		),
//	)
//
//	r.Route("/api/v1", func(api router.Router[*app.Context]) {
//		api.Use(middleware.Auth[*app.Context](authSvc))
//		api.Group(func(limited router.Router[*app.Context]) {
//			limited.Use(middleware.RateLimit[*app.Context](middleware.RateLimitConfig{
//				Limiter:    limiter,
//				SetHeaders: true,
//			}))
//			limited.Post("/enqueue", handleEnqueue)
//		})
//	})
//
// # Sessions
//
// Auth reads the access_token cookie and accepts a request only when the
// token signature verifies and the server-side session record names the same
// user. Missing, forged and revoked tokens all produce 401. TokenRefresh is
// the quiet half of the same scheme: it extends the session TTL on every
// request carrying a valid token and never fails the request itself.
//
// # Rate limiting
//
// RateLimit consumes one token per request from a ratelimiter.RateLimiter
// bucket keyed by CallerKey. Blocked requests receive 429 with a retry_after
// detail, and with SetHeaders enabled every decorated response reports
// X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, plus
// Retry-After when blocked.
package middleware
