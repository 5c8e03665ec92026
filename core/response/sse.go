package response

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/promptq/promptq/core/handler"
)

// DefaultSSEKeepAlive is the comment-ping interval that keeps idle
// subscription streams from being reaped by proxies.
const DefaultSSEKeepAlive = 30 * time.Second

// sseStream holds the rendering knobs for one SSE response.
type sseStream struct {
	event     string
	keepAlive time.Duration
	onError   func(context.Context, error)
}

// EventOption adjusts how SSE renders a stream.
type EventOption func(*sseStream)

// WithEventName labels every frame with an event type, so EventSource
// clients can listen for that type alone.
func WithEventName(name string) EventOption {
	return func(s *sseStream) { s.event = name }
}

// WithKeepAlive overrides the ping interval.
func WithKeepAlive(interval time.Duration) EventOption {
	return func(s *sseStream) { s.keepAlive = interval }
}

// WithoutKeepAlive disables pings.
func WithoutKeepAlive() EventOption {
	return func(s *sseStream) { s.keepAlive = 0 }
}

// WithSSEErrorHandler registers a callback for encode and write
// failures, which otherwise pass silently. The callback gets the
// request context.
func WithSSEErrorHandler(fn func(context.Context, error)) EventOption {
	return func(s *sseStream) { s.onError = fn }
}

// SSE streams values from events as Server-Sent Events until the
// channel closes or the client disconnects. Strings and byte slices go
// out as-is; any other value is JSON-encoded. The producer owns the
// channel and must close it to end the stream from its side.
func SSE(events <-chan any, opts ...EventOption) handler.Response {
	s := &sseStream{keepAlive: DefaultSSEKeepAlive}
	for _, opt := range opts {
		opt(s)
	}

	return func(w http.ResponseWriter, r *http.Request) error {
		flusher, ok := w.(http.Flusher)
		if !ok {
			return ErrInternalServerError.WithMessage("streaming unsupported")
		}

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		// Open with a comment so the client sees headers right away
		// even when the first frame takes a while.
		if _, err := io.WriteString(w, ": stream open\n\n"); err != nil {
			s.fail(r.Context(), err)
			return nil
		}
		flusher.Flush()

		var ping <-chan time.Time
		if s.keepAlive > 0 {
			ticker := time.NewTicker(s.keepAlive)
			defer ticker.Stop()
			ping = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				return nil

			case <-ping:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					s.fail(r.Context(), fmt.Errorf("keepalive: %w", err))
					return nil
				}
				flusher.Flush()

			case data, open := <-events:
				if !open {
					return nil
				}
				if err := s.writeFrame(w, data); err != nil {
					s.fail(r.Context(), err)
					continue
				}
				flusher.Flush()
			}
		}
	}
}

func (s *sseStream) fail(ctx context.Context, err error) {
	if s.onError != nil {
		s.onError(ctx, err)
	}
}

// writeFrame renders one frame in a single Write. Multi-line data gets
// one data: field per line, as the protocol requires.
func (s *sseStream) writeFrame(w io.Writer, data any) error {
	body, err := frameData(data)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	var buf bytes.Buffer
	if s.event != "" {
		buf.WriteString("event: ")
		buf.WriteString(s.event)
		buf.WriteByte('\n')
	}
	for _, line := range bytes.Split(body, []byte{'\n'}) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	_, err = w.Write(buf.Bytes())
	return err
}

func frameData(data any) ([]byte, error) {
	switch v := data.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
