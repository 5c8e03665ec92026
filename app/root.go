package app

import (
	"errors"
	"net/http"

	"github.com/promptq/promptq/core/auth"
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/middleware"
)

// bootstrap is the session entry point the frontend hits first. A request
// with a live token gets its session record renewed and a 200. Everything
// else, missing, expired or revoked tokens alike, gets a fresh guest
// identity: the token lands in the access_token cookie and the browser is
// sent back to / so the page reloads with the session attached.
func bootstrap(svc *auth.Service) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var token string
		if c, err := ctx.Request().Cookie(middleware.AccessTokenCookie); err == nil {
			token = c.Value
		}

		if token != "" {
			switch _, err := svc.Verify(ctx, token); {
			case err == nil:
				if err := svc.Renew(ctx, token); err != nil && !errors.Is(err, auth.ErrRevoked) {
					return response.Error(err)
				}
				return response.WithCookie(response.Status(http.StatusOK), sessionCookie(svc, token))
			case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrRevoked):
				// Stale cookie, fall through to the guest path.
			default:
				return response.Error(err)
			}
		}

		fresh, _, err := svc.IssueGuest(ctx)
		if err != nil {
			return response.Error(err)
		}
		return response.WithCookie(response.RedirectSeeOther("/"), sessionCookie(svc, fresh))
	}
}

// sessionCookie wraps a token for the browser. Secure stays off: the
// deployment fronts plain HTTP between the SPA and the API.
func sessionCookie(svc *auth.Service, token string) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(svc.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}
}
