package middleware

import (
	"errors"
	"strings"

	"github.com/promptq/promptq/core/auth"
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
)

// AccessTokenCookie is the cookie carrying the signed access token.
const AccessTokenCookie = "access_token"

// authUserIDContextKey is used as a key for storing the authenticated user id.
type authUserIDContextKey struct{}

// authTokenContextKey is used as a key for storing the raw verified token.
type authTokenContextKey struct{}

// AuthConfig configures the token authentication middleware.
type AuthConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// Service verifies tokens against both the signature and the server-side session record
	Service *auth.Service
	// TokenExtractor defines how to extract the token from the request (default: access_token cookie)
	TokenExtractor func(ctx handler.Context) string
	// ErrorHandler defines how to handle authentication failures (default: 401 Unauthorized)
	ErrorHandler func(ctx handler.Context, err error) handler.Response
}

// Auth creates an authentication middleware around the token service.
// Tokens are read from the access_token cookie. A request passes only when
// the signature verifies and the server-side session record names the same
// user; both missing and revoked tokens produce 401.
//
// Usage:
//
//	authSvc := auth.New(st, signer)
//	r.Route("/api/v1", func(api router.Router[*app.Context]) {
//		api.Use(middleware.Auth[*app.Context](authSvc))
//		api.Get("/tasks", handleTasks)
//	})
//
//	func handleTasks(ctx *app.Context) handler.Response {
//		userID, _ := middleware.GetUserID(ctx)
//		...
//	}
func Auth[C handler.Context](svc *auth.Service) handler.Middleware[C] {
	return AuthWithConfig[C](AuthConfig{Service: svc})
}

// AuthWithConfig creates an authentication middleware with custom configuration.
// Panics if the token service is not provided.
func AuthWithConfig[C handler.Context](cfg AuthConfig) handler.Middleware[C] {
	if cfg.Service == nil {
		panic("auth middleware: service is required")
	}

	if cfg.TokenExtractor == nil {
		cfg.TokenExtractor = TokenFromCookie(AccessTokenCookie)
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx handler.Context, err error) handler.Response {
			if errors.Is(err, auth.ErrUnauthenticated) || errors.Is(err, auth.ErrRevoked) {
				return response.Error(response.ErrUnauthorized)
			}
			return response.Error(err)
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			token := cfg.TokenExtractor(ctx)
			userID, err := cfg.Service.Verify(ctx, token)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.SetValue(authUserIDContextKey{}, userID)
			ctx.SetValue(authTokenContextKey{}, token)

			return next(ctx)
		}
	}
}

// GetUserID retrieves the authenticated user id from the request context.
// Returns false when the auth middleware did not run or rejected the request.
func GetUserID(ctx handler.Context) (string, bool) {
	userID, ok := ctx.Value(authUserIDContextKey{}).(string)
	return userID, ok
}

// GetAuthToken retrieves the raw verified token from the request context.
func GetAuthToken(ctx handler.Context) (string, bool) {
	token, ok := ctx.Value(authTokenContextKey{}).(string)
	return token, ok
}

// Token Extractors
//
// The following functions provide strategies for extracting access tokens
// from HTTP requests. They can be combined using TokenFromMultiple.

// TokenFromCookie returns an extractor that reads the token from an HTTP cookie.
func TokenFromCookie(cookieName string) func(handler.Context) string {
	return func(ctx handler.Context) string {
		cookie, err := ctx.Request().Cookie(cookieName)
		if err != nil {
			return ""
		}
		return cookie.Value
	}
}

// TokenFromAuthHeader returns an extractor that looks for the token in the
// Authorization header with Bearer scheme. It also accepts tokens without
// the Bearer prefix.
func TokenFromAuthHeader() func(handler.Context) string {
	return func(ctx handler.Context) string {
		header := ctx.Request().Header.Get("Authorization")
		if header == "" {
			return ""
		}
		const bearerPrefix = "Bearer "
		if strings.HasPrefix(header, bearerPrefix) {
			return header[len(bearerPrefix):]
		}
		return header
	}
}

// TokenFromMultiple returns an extractor that tries multiple extractors in
// order and returns the first non-empty token found.
func TokenFromMultiple(extractors ...func(handler.Context) string) func(handler.Context) string {
	return func(ctx handler.Context) string {
		for _, extractor := range extractors {
			if token := extractor(ctx); token != "" {
				return token
			}
		}
		return ""
	}
}
