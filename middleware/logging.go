package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/logger"
)

// LoggingConfig adjusts what the request log emits.
type LoggingConfig struct {
	// Skip suppresses the log line for matching requests. Health probes
	// are the usual candidates.
	Skip func(ctx handler.Context) bool

	// Logger receives the lines. Defaults to slog.Default().
	Logger *slog.Logger

	// Level applies to ordinary completions. Errors and slow requests
	// escalate past it on their own.
	Level slog.Level

	// SlowRequestThreshold escalates requests slower than this to warning
	// level (default: 5s). Streaming endpoints hold the connection open for
	// their whole lifetime, so skip them or raise the threshold.
	SlowRequestThreshold time.Duration

	// Component tags every line, "http" unless overridden.
	Component string
}

// Logging emits one line per completed request: peer, method, path,
// proto, status, bytes out and duration.
func Logging[C handler.Context]() handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{})
}

// LoggingWithConfig is Logging with the knobs exposed.
func LoggingWithConfig[C handler.Context](cfg LoggingConfig) handler.Middleware[C] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}

	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			start := time.Now()
			req := ctx.Request()

			peer := req.RemoteAddr
			if ip, ok := GetClientIP(ctx); ok {
				peer = ip
			}

			requestID, _ := GetRequestID(ctx)

			response := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
				err := response(recorder, r)

				duration := time.Since(start)

				// A response that errors out before writing is rendered by
				// the router's error handler after this middleware returns.
				// Log the status that render will produce, not the default.
				status := recorder.statusCode
				if err != nil && !recorder.headerWritten {
					status = errorStatus(err)
				}

				attrs := []slog.Attr{
					logger.Component(cfg.Component),
					slog.String("peer", peer),
					logger.Method(req.Method),
					logger.Path(req.URL.Path),
					slog.String("proto", req.Proto),
					logger.StatusCode(status),
					slog.Int64("bytes_out", recorder.size),
					logger.Duration(duration),
				}

				if requestID != "" {
					attrs = append(attrs, logger.RequestID(requestID))
				}
				if err != nil {
					attrs = append(attrs, logger.Error(err))
				}

				level := cfg.Level
				switch {
				case status >= 500:
					level = slog.LevelError
				case status >= 400:
					level = slog.LevelWarn
				case duration > cfg.SlowRequestThreshold:
					level = slog.LevelWarn
					attrs = append(attrs, slog.Bool("slow_request", true))
				}

				cfg.Logger.LogAttrs(req.Context(), level, "request completed", attrs...)

				return err
			}
		}
	}
}

// errorStatus maps an unrendered error to the status the router's error
// handler will answer with.
func errorStatus(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// statusRecorder wraps http.ResponseWriter to capture the status code and
// bytes written. Flush passes through so streaming responses keep working
// behind the recorder.
type statusRecorder struct {
	http.ResponseWriter
	statusCode    int
	size          int64
	headerWritten bool
}

func (rec *statusRecorder) WriteHeader(statusCode int) {
	if rec.headerWritten {
		return
	}
	rec.statusCode = statusCode
	rec.headerWritten = true
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.headerWritten {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.size += int64(n)
	return n, err
}

func (rec *statusRecorder) Flush() {
	if flusher, ok := rec.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
