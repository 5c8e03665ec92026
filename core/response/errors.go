package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/promptq/promptq/core/handler"
)

// HTTPError is an error carrying the HTTP status it should render with.
// Handlers return the predeclared values below, optionally refined with
// WithMessage or WithError; the router's error handler renders them.
type HTTPError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

// StatusCode reports the HTTP status the error renders with.
func (e HTTPError) StatusCode() int {
	return e.Status
}

// WithMessage returns a copy with the message replaced.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithDetails returns a copy with extra context attached.
func (e HTTPError) WithDetails(details map[string]any) HTTPError {
	e.Details = details
	return e
}

// WithError returns a copy with the cause recorded in the details.
func (e HTTPError) WithError(err error) HTTPError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details["cause"] = err.Error()
	e.Details = details
	return e
}

// httpError builds the canonical error for a status code. The code field
// is the status text in snake_case, e.g. "method_not_allowed".
func httpError(status int) HTTPError {
	text := http.StatusText(status)
	if text == "" {
		status = http.StatusInternalServerError
		text = http.StatusText(status)
	}
	return HTTPError{
		Status:  status,
		Code:    strings.ToLower(strings.ReplaceAll(text, " ", "_")),
		Message: text,
	}
}

// Errors for the statuses the API emits.
var (
	ErrBadRequest          = httpError(http.StatusBadRequest)
	ErrUnauthorized        = httpError(http.StatusUnauthorized)
	ErrForbidden           = httpError(http.StatusForbidden)
	ErrNotFound            = httpError(http.StatusNotFound)
	ErrMethodNotAllowed    = httpError(http.StatusMethodNotAllowed)
	ErrUnprocessableEntity = httpError(http.StatusUnprocessableEntity)
	ErrTooManyRequests     = httpError(http.StatusTooManyRequests)
	ErrInternalServerError = httpError(http.StatusInternalServerError)
	ErrServiceUnavailable  = httpError(http.StatusServiceUnavailable)
)

// statusCode lets foreign errors choose their HTTP status without
// depending on this package. The router's dispatch errors carry one.
type statusCode interface {
	StatusCode() int
}

// resolve normalizes any error into an HTTPError: HTTPError values pass
// through, a StatusCode method is honored, and everything else becomes
// a 500 with the cause attached.
func resolve(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	return httpError(status).WithError(err)
}

// ErrorHandler renders errors as plain text with the resolved status.
func ErrorHandler[C handler.Context](ctx C, err error) {
	e := resolve(err)
	Render(ctx, StringWithStatus(e.Error(), e.Status))
}

// JSONErrorHandler renders errors as JSON with the resolved status. The
// API mounts this one so clients always get a structured body.
func JSONErrorHandler[C handler.Context](ctx C, err error) {
	e := resolve(err)
	Render(ctx, JSONWithStatus(e, e.Status))
}
