package response

import (
	"net/http"

	"github.com/promptq/promptq/core/handler"
)

// Render executes resp against the context's writer. A render failure
// falls back to a plain 500; if the response already started, the
// fallback is a no-op at the transport level.
func Render(ctx handler.Context, resp handler.Response) {
	if err := resp(ctx.ResponseWriter(), ctx.Request()); err != nil {
		http.Error(ctx.ResponseWriter(), err.Error(), http.StatusInternalServerError)
	}
}

// Error propagates err to the router's error handler instead of writing
// anything itself. Handlers return it so status mapping stays in one
// place.
func Error(err error) handler.Response {
	return func(http.ResponseWriter, *http.Request) error {
		return err
	}
}

// String replies 200 with a text/plain body.
func String(content string) handler.Response {
	return StringWithStatus(content, http.StatusOK)
}

// StringWithStatus replies with a text/plain body and the given status.
func StringWithStatus(content string, status int) handler.Response {
	return func(w http.ResponseWriter, _ *http.Request) error {
		return write(w, "text/plain; charset=utf-8", status, []byte(content))
	}
}

// Status replies with the given status and no body.
func Status(code int) handler.Response {
	return func(w http.ResponseWriter, _ *http.Request) error {
		return write(w, "", code, nil)
	}
}

// NoContent replies 204.
func NoContent() handler.Response {
	return Status(http.StatusNoContent)
}

// Redirect replies 302 Found.
func Redirect(url string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		http.Redirect(w, r, url, http.StatusFound)
		return nil
	}
}

// RedirectSeeOther replies 303, turning the follow-up into a GET. The
// session bootstrap uses it to land the client back on the page it
// asked for.
func RedirectSeeOther(url string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		http.Redirect(w, r, url, http.StatusSeeOther)
		return nil
	}
}

// WithCookie sets cookie before resp renders, so the header lands ahead
// of the status line.
func WithCookie(resp handler.Response, cookie *http.Cookie) handler.Response {
	if resp == nil || cookie == nil {
		return resp
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		http.SetCookie(w, cookie)
		return resp(w, r)
	}
}

// write sends a complete response in one shot. A zero status means 200.
func write(w http.ResponseWriter, contentType string, status int, body []byte) error {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}
