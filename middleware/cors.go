package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
)

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to call the API. Empty or
	// containing "*" allows any origin.
	AllowOrigins []string

	// AllowMethods advertised on preflights. Defaults to the methods
	// the API serves.
	AllowMethods []string

	// AllowHeaders advertised on preflights that ask for headers.
	AllowHeaders []string

	// AllowCredentials permits cookies on cross-origin calls. It is
	// never combined with the wildcard origin, so the session cookie
	// cannot be exposed to arbitrary sites.
	AllowCredentials bool

	// MaxAge is how long, in seconds, browsers may cache a preflight
	// verdict.
	MaxAge int
}

// CORS allows any origin without credentials.
func CORS[C handler.Context]() handler.Middleware[C] {
	return CORSWithConfig[C](CORSConfig{})
}

// CORSWithConfig answers preflights and stamps access headers on
// cross-origin responses. Requests without an Origin header are
// same-origin and pass through untouched. Preflights from origins or
// for methods outside the policy get a bare 403.
func CORSWithConfig[C handler.Context](cfg CORSConfig) handler.Middleware[C] {
	p := newCORSPolicy(cfg)

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			req := ctx.Request()
			origin := req.Header.Get("Origin")
			if origin == "" {
				return next(ctx)
			}

			allowed, ok := p.resolveOrigin(origin)

			if method := req.Header.Get("Access-Control-Request-Method"); method != "" && req.Method == http.MethodOptions {
				if !ok || !slices.Contains(p.methods, method) {
					return response.Status(http.StatusForbidden)
				}
				return p.preflight(allowed, req.Header.Get("Access-Control-Request-Headers"))
			}

			resp := next(ctx)
			if !ok || resp == nil {
				return resp
			}
			return func(w http.ResponseWriter, r *http.Request) error {
				h := w.Header()
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Origin", allowed)
				if p.credentials && allowed != "*" {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				return resp(w, r)
			}
		}
	}
}

// corsPolicy is the policy precomputed once at router construction.
type corsPolicy struct {
	origins     map[string]bool
	wildcard    bool
	methods     []string
	methodsHdr  string
	headersHdr  string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		}
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Content-Type", "Authorization", "X-Request-ID"}
	}

	p := &corsPolicy{
		origins:     make(map[string]bool, len(cfg.AllowOrigins)),
		wildcard:    len(cfg.AllowOrigins) == 0,
		methods:     methods,
		methodsHdr:  strings.Join(methods, ", "),
		headersHdr:  strings.Join(headers, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.wildcard = true
			continue
		}
		p.origins[strings.ToLower(o)] = true
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// resolveOrigin maps the request origin to the Allow-Origin value. The
// wildcard policy answers "*" for everyone; explicit policies echo the
// origin back or reject it.
func (p *corsPolicy) resolveOrigin(origin string) (string, bool) {
	if p.wildcard {
		return "*", true
	}
	if p.origins[strings.ToLower(origin)] {
		return origin, true
	}
	return "", false
}

func (p *corsPolicy) preflight(allowed, requestHeaders string) handler.Response {
	return func(w http.ResponseWriter, _ *http.Request) error {
		h := w.Header()
		h.Add("Vary", "Origin")
		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		h.Set("Access-Control-Allow-Origin", allowed)
		h.Set("Access-Control-Allow-Methods", p.methodsHdr)
		if requestHeaders != "" {
			h.Set("Access-Control-Allow-Headers", p.headersHdr)
		}
		if p.credentials && allowed != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if p.maxAge != "" {
			h.Set("Access-Control-Max-Age", p.maxAge)
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
}
