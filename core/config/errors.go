package config

import "errors"

var (
	// ErrNilConfig is returned when Load receives a nil destination.
	ErrNilConfig = errors.New("config: nil destination")

	// ErrFailedToReadFile is returned when the configuration file cannot be read.
	ErrFailedToReadFile = errors.New("config: failed to read file")

	// ErrFailedToParseFile is returned when the configuration file is not valid YAML.
	ErrFailedToParseFile = errors.New("config: failed to parse file")

	// ErrFailedToParseEnv is returned when environment overlay parsing fails.
	ErrFailedToParseEnv = errors.New("config: failed to parse environment")

	// ErrInvalidConfig is returned when the loaded configuration fails validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)
