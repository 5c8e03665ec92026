package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/promptq/promptq/api/v1"
	"github.com/promptq/promptq/core/auth"
	"github.com/promptq/promptq/core/coldstore"
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/health"
	"github.com/promptq/promptq/core/janitor"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/reconciler"
	"github.com/promptq/promptq/core/registry"
	"github.com/promptq/promptq/core/response"
	"github.com/promptq/promptq/core/router"
	"github.com/promptq/promptq/core/server"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/integration/database/pg"
	"github.com/promptq/promptq/integration/database/redis"
	"github.com/promptq/promptq/middleware"
	"github.com/promptq/promptq/pkg/jwt"
	"github.com/promptq/promptq/pkg/ratelimiter"
)

// Enqueue rate limit per client IP. Prompts are cheap to accept but
// expensive to run, so the bucket is deliberately small.
const (
	enqueueBurst        = 30
	enqueueRefillWindow = time.Minute
)

// App wires the API server: queue store, session auth, fleet reconciler,
// dead letter janitor, optional warehouse replication and the HTTP surface.
// Workers are separate processes, see cmd/promptq-worker.
type App struct {
	cfg Config
	log *slog.Logger

	store     store.Store
	warehouse coldstore.Warehouse

	queue          *queue.Manager
	registry       *registry.Registry
	fleet          *reconciler.Reconciler
	janitor        *janitor.Janitor
	auth           *auth.Service
	sink           *v1.FeedbackFile
	limiterStore   *ratelimiter.MemoryStore
	limiter        *ratelimiter.Bucket
	replicator     *coldstore.Replicator
	warehouseCheck func(context.Context) error

	router router.Router[*Context]
	server *server.Server
}

// Option adjusts App construction.
type Option func(*App)

// WithLogger sets the application logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithStore injects a queue store, skipping the Redis connection. Tests
// pass the in-memory implementation.
func WithStore(st store.Store) Option {
	return func(a *App) { a.store = st }
}

// WithWarehouse injects a cold store warehouse, skipping the connection
// pool. Only consulted when use_gp_cold_store is set.
func WithWarehouse(w coldstore.Warehouse) Option {
	return func(a *App) { a.warehouse = w }
}

// New assembles the application from cfg. It connects to Redis (and to the
// warehouse when cold store replication is on) unless the backing services
// are injected through options.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		client, err := redis.Connect(ctx, redis.Config{
			ConnectionURL:  cfg.RedisURL(),
			RetryAttempts:  3,
			RetryInterval:  2 * time.Second,
			ConnectTimeout: 30 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("app: connect redis: %w", err)
		}
		a.store = store.NewRedis(client)
	}

	signer, err := jwt.NewFromString(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("app: jwt signer: %w", err)
	}
	a.auth = auth.New(a.store, signer,
		auth.WithLogger(a.log),
		auth.WithTokenTTL(cfg.TokenTTL()),
	)

	a.queue = queue.New(a.store, queue.WithLogger(a.log))
	a.registry = registry.New(a.store, registry.WithLogger(a.log))
	a.fleet = reconciler.New(a.store, a.queue, a.registry, reconciler.WithLogger(a.log))
	a.janitor = janitor.New(a.queue, janitor.WithLogger(a.log))
	a.sink = v1.NewFeedbackFile(cfg.FeedbackFile)

	a.limiterStore = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(a.log))
	a.limiter, err = ratelimiter.NewBucket(a.limiterStore, ratelimiter.Config{
		Capacity:       enqueueBurst,
		RefillRate:     enqueueBurst,
		RefillInterval: enqueueRefillWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("app: rate limiter: %w", err)
	}

	if cfg.UseGPColdStore {
		if a.warehouse == nil {
			pool, err := pg.Connect(ctx, cfg.WarehouseConfig())
			if err != nil {
				return nil, fmt.Errorf("app: connect warehouse: %w", err)
			}
			a.warehouse, err = coldstore.NewGreenplum(pool, cfg.GPSchema, cfg.GPTable)
			if err != nil {
				return nil, fmt.Errorf("app: warehouse: %w", err)
			}
			a.warehouseCheck = pg.Healthcheck(pool)
		}
		a.replicator = coldstore.New(a.store, a.warehouse, coldstore.WithLogger(a.log))
	}

	a.router = a.routes()
	a.server = server.New(cfg.Addr(),
		server.WithLogger(a.log),
		// Subscription streams hold the response open for the task's whole
		// lifetime; a write timeout would cut them mid-run.
		server.WithWriteTimeout(0),
	)
	return a, nil
}

// Fleet exposes the availability reconciler, mainly so tests and the
// readiness probe can drive or inspect cycles.
func (a *App) Fleet() *reconciler.Reconciler {
	return a.fleet
}

// ServeHTTP serves the application's routes. Exposed for httptest.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Run starts the HTTP server and the background loops, blocking until ctx
// is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(a.fleet.Run(ctx))
	eg.Go(a.janitor.Run(ctx))
	eg.Go(a.limiterStore.Run(ctx))
	if a.replicator != nil {
		eg.Go(a.replicator.Run(ctx))
	}
	eg.Go(a.server.Run(ctx, a.router))

	a.log.InfoContext(ctx, "promptq api started",
		slog.String("addr", a.cfg.Addr()),
		slog.Bool("cold_store", a.replicator != nil),
	)
	return eg.Wait()
}

// routes mounts the full HTTP surface: session bootstrap at /, health
// probes, and the v1 API with streaming endpoints left open and mutating
// ones behind cookie auth.
func (a *App) routes() router.Router[*Context] {
	// Streaming endpoints produce one log line per poll tick if logged
	// normally, so the request logger skips them.
	streaming := func(ctx handler.Context) bool {
		p := ctx.Request().URL.Path
		return strings.HasPrefix(p, "/api/v1/subscribe/") || p == "/api/v1/handlers/stream"
	}

	r := router.New[*Context](
		router.WithContextFactory[*Context](newContext),
		router.WithErrorHandler[*Context](response.JSONErrorHandler[*Context]),
		router.WithMiddleware(
			middleware.RequestID[*Context](),
			middleware.ClientIP[*Context](),
			middleware.LoggingWithConfig[*Context](middleware.LoggingConfig{
				Logger: a.log,
				Skip:   streaming,
			}),
			middleware.CORSWithConfig[*Context](middleware.CORSConfig{
				AllowOrigins:     []string{a.cfg.FrontendOrigin()},
				AllowCredentials: true,
				// Chromium caps preflight caching at two hours; asking
				// for more buys nothing.
				MaxAge: 7200,
			}),
			middleware.TokenRefreshWithConfig[*Context](middleware.TokenRefreshConfig{
				Service: a.auth,
				Logger:  a.log,
				// Bootstrap renews the session itself.
				Skip: func(ctx handler.Context) bool { return ctx.Request().URL.Path == "/" },
			}),
		),
	)

	// Preflights need a matching route before middleware runs; the CORS
	// middleware answers them ahead of this handler.
	r.Options("/*", func(*Context) handler.Response { return response.NoContent() })

	// Replication is part of the readiness contract when the cold store
	// is enabled, including the warehouse connection when this process
	// owns it.
	checks := []func(context.Context) error{
		a.store.Healthcheck,
		a.fleet.Healthcheck,
		a.limiterStore.Healthcheck,
	}
	if a.replicator != nil {
		checks = append(checks, a.replicator.Healthcheck)
	}
	if a.warehouseCheck != nil {
		checks = append(checks, a.warehouseCheck)
	}

	r.Get("/", bootstrap(a.auth))
	r.Get("/health/live", health.Liveness[*Context])
	r.Get("/health/ready", health.Readiness[*Context](a.log, checks...))

	r.Route("/api/v1", func(api router.Router[*Context]) {
		api.Get("/subscribe/{task_id}", v1.Subscribe[*Context](a.queue, a.log))
		api.Get("/handlers/stream", v1.HandlersStream[*Context](a.fleet))
		api.Post("/feedback", v1.Feedback[*Context](a.sink))

		api.Group(func(authed router.Router[*Context]) {
			authed.Use(middleware.Auth[*Context](a.auth))
			authed.Post("/feedback/{task_id}", v1.TaskFeedback[*Context](a.queue))
			authed.Get("/tasks", v1.Tasks[*Context](a.queue))
			authed.Get("/first-tasks", v1.FirstTasks[*Context](a.queue))

			authed.Group(func(limited router.Router[*Context]) {
				limited.Use(middleware.RateLimit[*Context](middleware.RateLimitConfig{
					Limiter:    a.limiter,
					SetHeaders: true,
				}))
				limited.Post("/enqueue", v1.Enqueue[*Context](a.queue, a.fleet))
			})
		})
	})

	return r
}
