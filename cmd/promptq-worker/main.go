package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/errgroup"

	"github.com/promptq/promptq/app"
	"github.com/promptq/promptq/core/config"
	"github.com/promptq/promptq/core/dispatch"
	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/queue"
	"github.com/promptq/promptq/core/registry"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/handlers"
	"github.com/promptq/promptq/integration/database/opensearch"
	"github.com/promptq/promptq/integration/database/redis"
	"github.com/promptq/promptq/pkg/vectorizer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg := app.MustLoad(*configPath)

	mode := logger.WithProduction("promptq-worker")
	if cfg.Debug {
		mode = logger.WithDevelopment("promptq-worker")
	}
	log := logger.New(mode, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))

	if len(cfg.Handlers) == 0 {
		log.Error("no handlers configured, nothing to run")
		os.Exit(1)
	}

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  cfg.RedisURL(),
		RetryAttempts:  3,
		RetryInterval:  2 * time.Second,
		ConnectTimeout: 30 * time.Second,
	})
	if err != nil {
		log.Error("failed to connect to redis", logger.Component("store"), logger.Error(err))
		os.Exit(1)
	}
	st := store.NewRedis(client)

	mgr := queue.New(st, queue.WithLogger(log))
	resolver := builtins(ctx, log)

	d := dispatch.New(mgr, resolver.Resolve,
		dispatch.WithLogger(log),
		dispatch.WithMaxRetries(cfg.MaxRetries),
	)

	// Only handlers that answer a probe get advertised. Zero survivors
	// means this worker has nothing to offer the fleet.
	verified, err := d.Verify(ctx, cfg.Handlers)
	if err != nil {
		log.Error("handler verification failed", logger.Component("dispatch"), logger.Error(err))
		os.Exit(1)
	}

	reg := registry.New(st, registry.WithLogger(log))
	workerID, err := reg.Register(ctx, verified)
	if err != nil {
		log.Error("worker registration failed", logger.Component("registry"), logger.Error(err))
		os.Exit(1)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(reg.RunHeartbeat(ctx, workerID))
	eg.Go(d.Run(ctx))

	if err := eg.Wait(); err != nil {
		log.Error("worker failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info("worker stopped")
}

// builtins registers the handler implementations this binary can actually
// back: echo always, chat when OpenAI credentials are present, search when
// the knowledge base index is reachable too.
func builtins(ctx context.Context, log *slog.Logger) *handlers.Registry {
	reg := handlers.New(handlers.WithLogger(log))
	reg.Register(handlers.PathEcho, handlers.EchoBuilder())

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return reg
	}

	llm := openai.NewClient(option.WithAPIKey(apiKey))
	reg.Register(handlers.PathChat, handlers.ChatBuilder(llm))

	if os.Getenv("OPENSEARCH_ADDRESSES") == "" {
		return reg
	}

	var osCfg opensearch.Config
	if err := config.Load("", &osCfg); err != nil {
		log.Warn("search handler disabled, opensearch config incomplete",
			logger.Component("handlers"), logger.Error(err))
		return reg
	}
	search, err := opensearch.New(ctx, osCfg)
	if err != nil {
		log.Warn("search handler disabled, opensearch unreachable",
			logger.Component("handlers"), logger.Error(err))
		return reg
	}

	embedder, err := newEmbedder(ctx, apiKey)
	if err != nil {
		log.Warn("search handler disabled, embedder unavailable",
			logger.Component("handlers"), logger.Error(err))
		return reg
	}

	reg.Register(handlers.PathSearch, handlers.SearchBuilder(search, embedder, llm))
	return reg
}

// newEmbedder picks the embedding backend: Google when its key is present,
// OpenAI otherwise. The choice must match the space the index was built in.
func newEmbedder(ctx context.Context, openaiKey string) (vectorizer.Vectorizer, error) {
	if googleKey := os.Getenv("GOOGLE_API_KEY"); googleKey != "" {
		return vectorizer.NewGoogle(ctx, googleKey)
	}
	return vectorizer.NewOpenAI(openaiKey)
}
