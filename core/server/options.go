package server

import (
	"log/slog"
	"time"
)

// Option configures a Server before it starts. Options are applied by New
// and must not be used afterwards.
type Option func(*Server)

// WithLogger sets the logger for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithShutdownTimeout bounds how long Serve waits for in-flight requests
// during shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdown = d }
}

// WithReadTimeout bounds reading the whole request, body included.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.httpSrv.ReadTimeout = d }
}

// WithWriteTimeout bounds response writes. Zero disables the deadline,
// which endpoints holding a stream open for a task's lifetime require.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.httpSrv.WriteTimeout = d }
}

// WithIdleTimeout bounds how long a keep-alive connection may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.httpSrv.IdleTimeout = d }
}
