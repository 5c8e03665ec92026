package pg

import "errors"

// Connection errors, matchable with errors.Is. Connect joins the driver
// error onto the sentinel so both survive unwrapping.
var (
	ErrEmptyConnectionString    = errors.New("empty postgres connection string")
	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
)
