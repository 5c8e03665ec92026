// Package opensearch opens verified OpenSearch clients for the knowledge
// base index behind the search handler.
//
// New builds a client from cfg and probes the cluster info endpoint
// before returning it, so a worker with an unreachable index disables
// its search handler at startup instead of failing every retrieval:
//
//	var cfg opensearch.Config
//	if err := config.Load("", &cfg); err != nil {
//		return err
//	}
//	client, err := opensearch.New(ctx, cfg)
//
// Healthcheck exposes the same probe for recurring checks.
package opensearch
