package redis

import "errors"

// Connection errors, matchable with errors.Is. Connect joins the driver
// error onto the sentinel so both survive unwrapping.
var (
	ErrEmptyConnectionURL   = errors.New("redis connection URL is empty")
	ErrInvalidConnectionURL = errors.New("invalid redis connection URL")
	ErrRedisNotReady        = errors.New("redis not ready before deadline")
)
