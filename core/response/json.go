package response

import (
	"encoding/json"
	"net/http"

	"github.com/promptq/promptq/core/handler"
)

// JSON replies 200 with v encoded as application/json. Encoding streams
// straight to the writer, so nothing buffers a large payload twice.
func JSON(v any) handler.Response {
	return JSONWithStatus(v, http.StatusOK)
}

// JSONWithStatus replies with v encoded as application/json and the
// given status. A zero status resolves to 200, or 204 when v is nil;
// statuses that forbid a body (204, 304) skip encoding entirely.
func JSONWithStatus(v any, status int) handler.Response {
	return func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if status == 0 {
			status = http.StatusOK
			if v == nil {
				status = http.StatusNoContent
			}
		}
		w.WriteHeader(status)

		if status == http.StatusNoContent || status == http.StatusNotModified {
			return nil
		}
		return json.NewEncoder(w).Encode(v)
	}
}
