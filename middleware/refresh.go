package middleware

import (
	"log/slog"

	"github.com/promptq/promptq/core/auth"
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/logger"
)

// TokenRefreshConfig configures the silent token refresh middleware.
type TokenRefreshConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// Service verifies and renews the session record
	Service *auth.Service
	// TokenExtractor defines how to extract the token from the request (default: access_token cookie)
	TokenExtractor func(ctx handler.Context) string
	// Logger records refresh failures at debug level (default: slog.Default())
	Logger *slog.Logger
}

// TokenRefresh creates a middleware that extends the session record TTL on
// every request carrying a valid token. The session stays alive as long as
// the client keeps calling; refresh failures never fail the request.
//
// Mount it globally, before authentication:
//
//	r.Use(middleware.TokenRefresh[*app.Context](authSvc))
func TokenRefresh[C handler.Context](svc *auth.Service) handler.Middleware[C] {
	return TokenRefreshWithConfig[C](TokenRefreshConfig{Service: svc})
}

// TokenRefreshWithConfig creates a token refresh middleware with custom
// configuration. Panics if the token service is not provided.
func TokenRefreshWithConfig[C handler.Context](cfg TokenRefreshConfig) handler.Middleware[C] {
	if cfg.Service == nil {
		panic("token refresh middleware: service is required")
	}

	if cfg.TokenExtractor == nil {
		cfg.TokenExtractor = TokenFromCookie(AccessTokenCookie)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			token := cfg.TokenExtractor(ctx)
			if token == "" {
				return next(ctx)
			}

			if _, err := cfg.Service.Verify(ctx, token); err != nil {
				cfg.Logger.DebugContext(ctx, "token refresh skipped", logger.Error(err))
				return next(ctx)
			}
			if err := cfg.Service.Renew(ctx, token); err != nil {
				cfg.Logger.DebugContext(ctx, "token refresh failed", logger.Error(err))
			}

			return next(ctx)
		}
	}
}
