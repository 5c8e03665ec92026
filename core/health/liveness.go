package health

import (
	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/response"
)

// Liveness answers "ALIVE" with 200 as long as the process serves HTTP.
// It checks nothing else; a live instance may still be unready.
func Liveness[C handler.Context](C) handler.Response {
	return response.String("ALIVE")
}
