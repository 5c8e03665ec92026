package health

import (
	"context"
	"log/slog"

	"github.com/promptq/promptq/core/handler"
	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/response"
)

// Readiness runs every check in order and answers "READY" only when all
// pass. The first failure is logged and turns the probe into a 503; the
// remaining checks are skipped since the instance is out of rotation
// either way.
func Readiness[C handler.Context](log *slog.Logger, checks ...func(context.Context) error) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component("health"),
					logger.Error(err),
				)
				return response.Error(response.ErrServiceUnavailable)
			}
		}
		return response.String("READY")
	}
}
