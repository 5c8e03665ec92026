// Package config loads typed configuration from a static YAML file read
// once at startup, with environment variables overlaid on top for
// credential passthrough.
//
// YAML keys bind through `yaml` struct tags; secrets bind through `env` tags
// from the caarlos0/env library and only overwrite when the variable is set.
// Field defaults belong in the destination value before loading, not in
// envDefault tags, which would clobber file-provided values. A .env file,
// when present, is loaded once on first use (development convenience).
//
//	type Config struct {
//		Host      string `yaml:"host"`
//		RedisPort int    `yaml:"redis_port"`
//		SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
//	}
//
//	func (c Config) Validate() error { ... }
//
//	cfg := DefaultConfig()
//	if err := config.Load("config.yaml", &cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Types implementing Validator are checked after both stages; a validation
// failure is fatal at startup by policy (MustLoad panics).
package config
