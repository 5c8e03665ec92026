// Package logger builds slog loggers with environment presets and
// supplies attribute constructors for the identifiers this system logs
// (tasks, workers, handlers, requests, users).
//
// A worker process typically starts with:
//
//	log := logger.New(
//		logger.WithProduction("promptq"),
//		logger.WithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"))),
//	)
//
//	log.Info("task completed",
//		logger.Component("dispatcher"),
//		logger.TaskID(task.ID),
//		logger.Duration(elapsed),
//	)
//
// WithDevelopment switches to text output at debug level for local
// runs; WithProduction emits JSON at info level. Attribute helpers
// return the zero slog.Attr for empty inputs, which handlers drop, so
// call sites never guard against blank identifiers.
package logger
