// Package redis opens verified Redis connections for the queue store.
//
// Connect parses the connection URL, then pings with exponential backoff
// until the server answers or cfg.ConnectTimeout runs out. A client that
// never proved connectivity is closed and an error joined onto
// ErrRedisNotReady comes back instead, so callers can fail fast at
// startup rather than on the first queue operation:
//
//	client, err := redis.Connect(ctx, redis.Config{
//		ConnectionURL: "redis://localhost:6379/0",
//	})
//	if err != nil {
//		return err
//	}
//	st := store.NewRedis(client)
//
// Ongoing health is the store's concern; this package only guards the
// initial handshake.
package redis
