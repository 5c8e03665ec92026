package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/promptq/promptq/app"
	"github.com/promptq/promptq/core/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg := app.MustLoad(*configPath)

	mode := logger.WithProduction("promptq")
	if cfg.Debug {
		mode = logger.WithDevelopment("promptq")
	}
	log := logger.New(mode, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))

	a, err := app.New(ctx, cfg, app.WithLogger(log))
	if err != nil {
		log.Error("failed to assemble application", logger.Error(err))
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Error("application failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info("application stopped")
}
