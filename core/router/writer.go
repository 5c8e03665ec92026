package router

import "net/http"

// responseWriter tracks whether the status line went out. The error
// handler consults it to avoid a second WriteHeader, and panic recovery
// downgrades to log-only once bytes are on the wire. First status
// wins; later WriteHeader calls are dropped.
type responseWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wrote {
		return
	}
	w.status = status
	w.wrote = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Written reports whether the status line has been sent.
func (w *responseWriter) Written() bool { return w.wrote }

// Status returns the status sent, or zero before the first write.
func (w *responseWriter) Status() int { return w.status }

// Flush forwards to the underlying writer so streaming handlers, the
// event subscription feed in particular, can push frames through the
// wrapper.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
