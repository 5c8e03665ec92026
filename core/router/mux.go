package router

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/logger"
)

// ContextFactory builds the typed context for one request. params holds
// the matched path parameters and is nil for routes without any.
type ContextFactory[C handler.Context] func(w http.ResponseWriter, r *http.Request, params map[string]string) C

// Option configures a router at construction.
type Option[C handler.Context] func(*mux[C])

// WithContextFactory sets the factory producing the per-request
// context. Routers over a custom context type cannot serve without one.
func WithContextFactory[C handler.Context](factory ContextFactory[C]) Option[C] {
	return func(m *mux[C]) {
		if factory != nil {
			m.factory = factory
		}
	}
}

// WithErrorHandler replaces the default plain-text error handler.
func WithErrorHandler[C handler.Context](h handler.ErrorHandler[C]) Option[C] {
	return func(m *mux[C]) {
		if h != nil {
			m.onError = h
		}
	}
}

// WithMiddleware seeds router-wide middleware, equivalent to calling
// Use before the first route.
func WithMiddleware[C handler.Context](mw ...handler.Middleware[C]) Option[C] {
	return func(m *mux[C]) {
		m.middleware = append(m.middleware, mw...)
	}
}

// WithLogger sets the logger for failures that can no longer reach the
// error handler, such as panics raised after the response started.
func WithLogger[C handler.Context](log *slog.Logger) Option[C] {
	return func(m *mux[C]) {
		if log != nil {
			m.log = log
		}
	}
}

type mux[C handler.Context] struct {
	routes     *trie[C]
	factory    ContextFactory[C]
	onError    handler.ErrorHandler[C]
	log        *slog.Logger
	middleware []handler.Middleware[C]
	routed     bool
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		routes:  newTrie[C](),
		onError: textErrorHandler[C],
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.factory == nil {
		m.factory = defaultFactory[C]
	}
	return m
}

// defaultFactory covers routers instantiated over the built-in
// *Context. Any other context type needs WithContextFactory and gets a
// panic at the first request otherwise, since the router cannot invent
// a value of an unknown type.
func defaultFactory[C handler.Context](w http.ResponseWriter, r *http.Request, params map[string]string) C {
	var zero C
	if _, ok := any(zero).(*Context); ok {
		return any(newContext(w, r, params)).(C)
	}
	panic(ErrNoContextFactory)
}

func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := &responseWriter{ResponseWriter: w}

	// Match on the escaped form so an encoded slash cannot split a
	// parameter into two segments.
	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	mt := m.routes.lookup(r.Method, path)
	ctx := m.factory(ww, r, mt.params)

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		// The logging middleware never sees a panicking request, so
		// this is the one record of it. The error handler only renders.
		m.log.ErrorContext(r.Context(), "recovered handler panic",
			logger.Component("router"),
			slog.Any("panic", p),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Stack(),
		)
		if ww.Written() {
			return
		}
		m.onError(ctx, &panicError{value: p})
	}()

	switch {
	case mt.fn != nil:
		resp := mt.fn(ctx)
		if resp == nil {
			m.onError(ctx, ErrNilResponse)
			return
		}
		if err := resp(ww, r); err != nil {
			m.onError(ctx, err)
		}
	case len(mt.allowed) > 0:
		ww.Header().Set("Allow", strings.Join(mt.allowed, ", "))
		m.onError(ctx, ErrMethodNotAllowed)
	default:
		m.onError(ctx, ErrNotFound)
	}
}

func (m *mux[C]) Get(pattern string, fn handler.HandlerFunc[C]) {
	m.register(http.MethodGet, "", nil, pattern, fn)
}

func (m *mux[C]) Post(pattern string, fn handler.HandlerFunc[C]) {
	m.register(http.MethodPost, "", nil, pattern, fn)
}

func (m *mux[C]) Put(pattern string, fn handler.HandlerFunc[C]) {
	m.register(http.MethodPut, "", nil, pattern, fn)
}

func (m *mux[C]) Delete(pattern string, fn handler.HandlerFunc[C]) {
	m.register(http.MethodDelete, "", nil, pattern, fn)
}

func (m *mux[C]) Options(pattern string, fn handler.HandlerFunc[C]) {
	m.register(http.MethodOptions, "", nil, pattern, fn)
}

// Use appends router-wide middleware. It panics after the first route
// lands: middleware added late would silently skip already-registered
// handlers, and that bug is cheaper to surface at startup.
func (m *mux[C]) Use(mw ...handler.Middleware[C]) {
	if m.routed {
		panic("router: Use called after routes were registered")
	}
	m.middleware = append(m.middleware, mw...)
}

func (m *mux[C]) Group(fn func(Router[C])) {
	if fn != nil {
		fn(&scope[C]{mux: m})
	}
}

func (m *mux[C]) Route(prefix string, fn func(Router[C])) {
	if fn != nil {
		fn(&scope[C]{mux: m, prefix: strings.TrimSuffix(prefix, "/")})
	}
}

// register is the single funnel into the tree. Router-wide middleware
// wraps outermost, then the scope's, then the handler. Chaining at
// registration keeps the serve path free of per-request allocation.
func (m *mux[C]) register(method, prefix string, scoped []handler.Middleware[C], pattern string, fn handler.HandlerFunc[C]) {
	m.routed = true
	m.routes.insert(method, prefix+pattern, wrap(m.middleware, wrap(scoped, fn)))
}

// scope is a Router view that prefixes patterns and layers middleware
// on top of its parent's. Registration lands in the shared tree, so
// scopes are free to create and discard.
type scope[C handler.Context] struct {
	mux    *mux[C]
	prefix string
	mw     []handler.Middleware[C]
	routed bool
}

func (s *scope[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *scope[C]) Get(pattern string, fn handler.HandlerFunc[C]) {
	s.register(http.MethodGet, pattern, fn)
}

func (s *scope[C]) Post(pattern string, fn handler.HandlerFunc[C]) {
	s.register(http.MethodPost, pattern, fn)
}

func (s *scope[C]) Put(pattern string, fn handler.HandlerFunc[C]) {
	s.register(http.MethodPut, pattern, fn)
}

func (s *scope[C]) Delete(pattern string, fn handler.HandlerFunc[C]) {
	s.register(http.MethodDelete, pattern, fn)
}

func (s *scope[C]) Options(pattern string, fn handler.HandlerFunc[C]) {
	s.register(http.MethodOptions, pattern, fn)
}

func (s *scope[C]) Use(mw ...handler.Middleware[C]) {
	if s.routed {
		panic("router: Use called after routes were registered")
	}
	s.mw = append(slices.Clone(s.mw), mw...)
}

func (s *scope[C]) Group(fn func(Router[C])) {
	if fn != nil {
		fn(&scope[C]{mux: s.mux, prefix: s.prefix, mw: slices.Clone(s.mw)})
	}
}

func (s *scope[C]) Route(prefix string, fn func(Router[C])) {
	if fn != nil {
		fn(&scope[C]{
			mux:    s.mux,
			prefix: s.prefix + strings.TrimSuffix(prefix, "/"),
			mw:     slices.Clone(s.mw),
		})
	}
}

func (s *scope[C]) register(method, pattern string, fn handler.HandlerFunc[C]) {
	s.routed = true
	s.mux.register(method, s.prefix, s.mw, pattern, fn)
}

// wrap applies middleware so the first entry runs outermost.
func wrap[C handler.Context](mw []handler.Middleware[C], fn handler.HandlerFunc[C]) handler.HandlerFunc[C] {
	for i := len(mw) - 1; i >= 0; i-- {
		fn = mw[i](fn)
	}
	return fn
}
