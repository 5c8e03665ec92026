package opensearch

import (
	"context"
	"errors"
	"fmt"

	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
)

// Config holds OpenSearch connection settings with environment variable
// mapping. Multiple addresses give the client failover targets.
type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES,required"`
	Username     string   `env:"OPENSEARCH_USERNAME,notEmpty"`
	Password     string   `env:"OPENSEARCH_PASSWORD,notEmpty"`
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
}

// New creates an OpenSearch client from cfg and verifies cluster
// connectivity before returning it, so a broken client never reaches the
// caller.
func New(ctx context.Context, cfg Config) (*opensearchgo.Client, error) {
	client, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		DisableRetry: cfg.DisableRetry,
	})
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if err := Healthcheck(client)(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Healthcheck returns a function that verifies cluster reachability through
// the info endpoint, suitable for readiness and liveness probes.
func Healthcheck(client *opensearchgo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		resp, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		defer resp.Body.Close()

		if resp.IsError() {
			return fmt.Errorf("%w: %s", ErrHealthcheckFailed, resp.Status())
		}
		return nil
	}
}
