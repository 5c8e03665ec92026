package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type config struct {
	level     slog.Level
	format    string // "text" or "json"
	output    io.Writer
	attrs     []slog.Attr
	addSource bool
}

// Option configures the logger factory.
type Option func(*config)

// WithLevel sets the minimum level the handler emits.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithDevelopment configures a human-readable text logger at debug level,
// tagged with the application name.
func WithDevelopment(app string) Option {
	return func(c *config) {
		c.level = slog.LevelDebug
		c.format = "text"
		if app != "" {
			c.attrs = append(c.attrs, slog.String("app", app))
		}
	}
}

// WithProduction configures a JSON logger at info level, tagged with the
// application name.
func WithProduction(app string) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		c.format = "json"
		if app != "" {
			c.attrs = append(c.attrs, slog.String("app", app))
		}
	}
}

// WithJSONFormatter forces JSON output regardless of environment preset.
func WithJSONFormatter() Option {
	return func(c *config) {
		c.format = "json"
	}
}

// WithTextFormatter forces text output regardless of environment preset.
func WithTextFormatter() Option {
	return func(c *config) {
		c.format = "text"
	}
}

// WithOutput redirects log output. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr attaches a static attribute to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithSource annotates records with the file:line of the logging call.
func WithSource() Option {
	return func(c *config) {
		c.addSource = true
	}
}

// New creates a slog.Logger from the given options. Without options it
// produces a text logger at info level on stdout.
func New(opts ...Option) *slog.Logger {
	cfg := config{
		level:  slog.LevelInfo,
		format: "text",
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ho := &slog.HandlerOptions{
		Level:     cfg.level,
		AddSource: cfg.addSource,
	}

	var h slog.Handler
	if cfg.format == "json" {
		h = slog.NewJSONHandler(cfg.output, ho)
	} else {
		h = slog.NewTextHandler(cfg.output, ho)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}

	return slog.New(h)
}

// ParseLevel maps a config string to a slog.Level, defaulting to info.
// Recognized values (case-insensitive): debug, info, warn, warning, error.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
