package logger

import (
	"log/slog"
	"runtime"
	"time"
)

// Attr constructors for the fields PromptQ logs. The identifier helpers
// return the zero Attr when the value is empty; slog handlers drop zero
// Attrs, so call sites never guard against blanks.

// Error records a single error under "error". Accepts nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration records an operation's duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// RequestID tags a record with the request id assigned by the middleware.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// TaskID tags a record with a task identifier.
func TaskID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("task_id", id)
}

// UserID tags a record with a task owner.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// WorkerID tags a record with a worker identifier.
func WorkerID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("worker_id", id)
}

// HandlerID tags a record with a handler identifier, task_type:version.
func HandlerID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("handler_id", id)
}

// Method records an HTTP method.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Path records a URL path.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// StatusCode records an HTTP status code.
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count records a named counter, e.g. Count("released", n).
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// RetryCount records how many delivery attempts a task has consumed.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Stack captures the calling goroutine's stack.
func Stack() slog.Attr {
	const size = 64 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	return slog.String("stack", string(buf))
}
