// Package server runs the HTTP listener with context-driven graceful
// shutdown.
//
// A Server wraps one http.Server. Serve blocks until the context is
// canceled, then drains in-flight requests within the shutdown budget.
// Run adapts Serve to errgroup.Go so the listener stops alongside the
// background loops:
//
//	srv := server.New(":8080",
//		server.WithLogger(log),
//		server.WithWriteTimeout(0),
//	)
//
//	eg, ctx := errgroup.WithContext(ctx)
//	eg.Go(srv.Run(ctx, routes))
//	return eg.Wait()
//
// Request contexts descend from the Serve context. When shutdown begins,
// open subscription streams observe the cancellation and close on their
// own, so the drain completes without waiting out the full budget.
//
// The default write timeout is 15 seconds. Deployments serving event
// streams must disable it with WithWriteTimeout(0); net/http enforces
// the deadline per response and would cut long streams mid-flight.
package server
