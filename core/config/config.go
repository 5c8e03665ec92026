package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var loadDotEnvOnce sync.Once

// Validator is implemented by configuration types that carry cross-field
// constraints checked after loading.
type Validator interface {
	Validate() error
}

// Load populates cfg from the YAML file at path, then overlays environment
// variables declared via `env` struct tags (credential passthrough), and
// finally runs cfg.Validate when implemented. A missing file is an error;
// an empty path skips the file stage and loads from the environment alone.
func Load[T any](path string, cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	// A .env file is a development convenience; absence is not an error.
	loadDotEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Join(ErrFailedToReadFile, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return errors.Join(ErrFailedToParseFile, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrFailedToParseEnv, err)
	}

	if v, ok := any(cfg).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// MustLoad is Load that panics on failure, for use at process startup where
// an unreadable configuration is fatal.
func MustLoad[T any](path string, cfg *T) {
	if err := Load(path, cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
