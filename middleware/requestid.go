package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/promptq/promptq/core/handler"
)

type requestIDKey struct{}

// RequestID tags every request with a fresh UUID, stores it on the
// context for the request logger, and echoes it back in the
// X-Request-ID response header so a client can quote it when reporting
// a failure. Incoming X-Request-ID headers are not trusted and get
// replaced.
func RequestID[C handler.Context]() handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			id := uuid.NewString()
			ctx.SetValue(requestIDKey{}, id)

			resp := next(ctx)
			if resp == nil {
				return nil
			}
			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set("X-Request-ID", id)
				return resp(w, r)
			}
		}
	}
}

// GetRequestID reads the id RequestID stored for this request.
func GetRequestID(ctx handler.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
