package app

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/promptq/promptq/core/config"
	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/integration/database/pg"
)

// Configuration errors surfaced by Validate.
var (
	ErrMissingSecretKey    = errors.New("app: secret_key is required")
	ErrUnsupportedJWTAlg   = errors.New("app: only the HS256 jwt_algorithm is supported")
	ErrInvalidPort         = errors.New("app: ports must be between 1 and 65535")
	ErrInvalidRetries      = errors.New("app: max_retries must be positive")
	ErrIncompleteWarehouse = errors.New("app: gp_host, gp_database, gp_schema and gp_table are required when use_gp_cold_store is set")
)

// Config is the shared configuration for both the API server and the worker.
// Values come from a YAML file with environment variables layered on top, so
// secrets never have to live in the file. Defaults returns the baseline.
type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	Debug    bool   `yaml:"debug" env:"DEBUG"`

	Host         string `yaml:"host" env:"HOST"`
	BackendPort  int    `yaml:"backend_port" env:"BACKEND_PORT"`
	FrontendPort int    `yaml:"frontend_port" env:"FRONTEND_PORT"`

	RedisPort int `yaml:"redis_port" env:"REDIS_PORT"`
	RedisDB   int `yaml:"redis_db" env:"REDIS_DB"`

	SecretKey             string `yaml:"secret_key" env:"SECRET_KEY"`
	JWTAlgorithm          string `yaml:"jwt_algorithm" env:"JWT_ALGORITHM"`
	AccessTokenExpireDays int    `yaml:"access_token_expire_days" env:"ACCESS_TOKEN_EXPIRE_DAYS"`

	MaxRetries   int    `yaml:"max_retries" env:"MAX_RETRIES"`
	FeedbackFile string `yaml:"feedback_file" env:"FEEDBACK_FILE"`

	// Handlers lists the prompt handlers a worker process should run.
	// The API server ignores it; availability comes from the registry.
	Handlers []task.HandlerConfig `yaml:"handlers"`

	// Cold store replication into the analytics warehouse. Credentials are
	// environment-only on purpose.
	UseGPColdStore bool   `yaml:"use_gp_cold_store" env:"USE_GP_COLD_STORE"`
	GPHost         string `yaml:"gp_host" env:"GP_HOST"`
	GPPort         int    `yaml:"gp_port" env:"GP_PORT"`
	GPDatabase     string `yaml:"gp_database" env:"GP_DATABASE"`
	GPSchema       string `yaml:"gp_schema" env:"GP_SCHEMA"`
	GPTable        string `yaml:"gp_table" env:"GP_TABLE"`
	GPUsername     string `yaml:"-" env:"GP_USERNAME"`
	GPPassword     string `yaml:"-" env:"GP_PASSWORD"`
}

// Defaults returns the configuration used when the YAML file and the
// environment stay silent. Load starts from these, so a minimal file only
// needs secret_key.
func Defaults() Config {
	return Config{
		LogLevel:              "info",
		Host:                  "0.0.0.0",
		BackendPort:           8000,
		FrontendPort:          3000,
		RedisPort:             6379,
		RedisDB:               0,
		JWTAlgorithm:          "HS256",
		AccessTokenExpireDays: 90,
		MaxRetries:            3,
		FeedbackFile:          "feedback.json",
		GPPort:                5432,
		GPSchema:              "public",
	}
}

// Load reads the configuration file at path and overlays the environment.
// An empty path loads from the environment alone.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if err := config.Load(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load that panics on failure, for process startup.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("app: load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field constraints after loading.
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.JWTAlgorithm != "HS256" {
		return fmt.Errorf("%w: got %q", ErrUnsupportedJWTAlg, c.JWTAlgorithm)
	}
	for _, port := range []int{c.BackendPort, c.FrontendPort, c.RedisPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%w: got %d", ErrInvalidPort, port)
		}
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRetries, c.MaxRetries)
	}
	if c.UseGPColdStore {
		if c.GPHost == "" || c.GPDatabase == "" || c.GPSchema == "" || c.GPTable == "" {
			return ErrIncompleteWarehouse
		}
		if c.GPPort < 1 || c.GPPort > 65535 {
			return fmt.Errorf("%w: got %d", ErrInvalidPort, c.GPPort)
		}
	}
	return nil
}

// Addr returns the API listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.BackendPort))
}

// FrontendOrigin returns the browser origin allowed by CORS.
func (c Config) FrontendOrigin() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.FrontendPort)
}

// RedisURL builds the connection URL for the queue store.
func (c Config) RedisURL() string {
	return fmt.Sprintf("redis://%s/%d", net.JoinHostPort(c.Host, strconv.Itoa(c.RedisPort)), c.RedisDB)
}

// TokenTTL converts the access token lifetime to a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireDays) * 24 * time.Hour
}

// WarehouseConfig builds the connection settings for the cold store pool.
// The pool stays small: replication runs one cycle at a time.
func (c Config) WarehouseConfig() pg.Config {
	dsn := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.GPHost, strconv.Itoa(c.GPPort)),
		Path:   "/" + c.GPDatabase,
	}
	if c.GPUsername != "" {
		dsn.User = url.UserPassword(c.GPUsername, c.GPPassword)
	}
	return pg.Config{
		ConnectionString: dsn.String(),
		MaxOpenConns:     5,
		MaxIdleConns:     1,
		MaxConnIdleTime:  30 * time.Second,
		RetryAttempts:    3,
		RetryInterval:    2 * time.Second,
	}
}
