package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/promptq/promptq/core/handler"
)

// routeError is a routing failure carrying its HTTP status, so any
// error handler that understands StatusCode renders the right code
// without importing the router's sentinels.
type routeError struct {
	status int
	msg    string
}

func (e *routeError) Error() string   { return e.msg }
func (e *routeError) StatusCode() int { return e.status }

// Errors handed to the error handler when dispatch fails. Comparable
// with errors.Is.
var (
	ErrNotFound         error = &routeError{http.StatusNotFound, "route not found"}
	ErrMethodNotAllowed error = &routeError{http.StatusMethodNotAllowed, "method not allowed"}
	ErrNilResponse      error = &routeError{http.StatusInternalServerError, "handler returned no response"}
)

// Registration-time panics. Routes are wired at startup, so these
// surface programming errors rather than request conditions.
var (
	ErrInvalidPattern   = errors.New("invalid route pattern")
	ErrNoContextFactory = errors.New("router: custom context type requires WithContextFactory")
)

// statusCoder lets the default error handler pick a response status
// from errors that know their own.
type statusCoder interface {
	StatusCode() int
}

// textErrorHandler is the default error handler: the error's status
// when it carries one, 500 otherwise, message as plain text. It stays
// quiet when the response already started.
func textErrorHandler[C handler.Context](ctx C, err error) {
	w := ctx.ResponseWriter()
	if ww, ok := w.(*responseWriter); ok && ww.Written() {
		return
	}
	status := http.StatusInternalServerError
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	http.Error(w, err.Error(), status)
}

// panicError delivers a recovered panic to the error handler. The mux
// logs the stack before handing it over, so the error only needs to
// render.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) StatusCode() int {
	return http.StatusInternalServerError
}

// Unwrap exposes the panic value when the handler panicked with an
// error, keeping errors.Is and errors.As usable on it.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
