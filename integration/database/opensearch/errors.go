package opensearch

import "errors"

// Domain-specific OpenSearch errors for consistent error handling across the
// application. Use errors.Is() to check error types.
var (
	ErrConnectionFailed  = errors.New("failed to create opensearch client")
	ErrHealthcheckFailed = errors.New("opensearch healthcheck failed")
)
