package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// Defaults applied by New. Each has a With* override; servers carrying
// long-lived subscription streams must set the write timeout to 0 or
// net/http cuts the stream when the deadline hits.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
)

// ErrAlreadyRunning is returned by Serve when the server was started twice.
var ErrAlreadyRunning = errors.New("server: already running")

// Server runs one http.Server with context-driven graceful shutdown.
// A Server serves once; create a new one to serve again.
type Server struct {
	httpSrv  *http.Server
	log      *slog.Logger
	shutdown time.Duration
	started  atomic.Bool
}

// New creates a server that will bind addr when Serve runs.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		httpSrv: &http.Server{
			Addr:           addr,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			IdleTimeout:    DefaultIdleTimeout,
			MaxHeaderBytes: DefaultMaxHeaderBytes,
		},
		log:      slog.New(slog.DiscardHandler),
		shutdown: DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve binds the address and serves handler until ctx is canceled, then
// drains in-flight requests within the shutdown budget. Request contexts
// descend from ctx, so open streams observe the cancellation and finish
// instead of stalling the drain. A canceled context is a clean exit.
func (s *Server) Serve(ctx context.Context, handler http.Handler) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.httpSrv.Handler = handler
	s.httpSrv.BaseContext = func(net.Listener) context.Context { return ctx }

	serveErr := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "http server listening", slog.String("addr", s.httpSrv.Addr))
		serveErr <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("http server draining", slog.Duration("timeout", s.shutdown))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}

	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	s.log.Info("http server stopped")
	return nil
}

// Run adapts Serve to the errgroup.Go signature.
func (s *Server) Run(ctx context.Context, handler http.Handler) func() error {
	return func() error {
		return s.Serve(ctx, handler)
	}
}
