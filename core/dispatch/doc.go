// Package dispatch implements the worker side of the task pipeline:
// startup verification of the configured handlers and the claim/execute/
// resolve loop.
//
// Verification invokes every configured handler once with a probe task.
// Handlers the binary does not ship are dropped on the spot; handlers that
// error on the probe get three attempts before being dropped. Only
// verified handlers are advertised to the registry, and a worker with zero
// verified handlers refuses to start.
//
// The loop claims one task at a time from the ready queues of the verified
// handlers, marks it RUNNING so subscribers observe the transition, runs
// the handler synchronously, and resolves the task: success persists the
// answer as COMPLETED; failure reloads the record, bumps the retry
// counter, and either requeues at the head of the global line or parks the
// task in the dead letters once the bound is reached. A panicking handler
// counts as a failure, not a crash.
//
// Usage:
//
//	builtins := handlers.New(handlers.WithLogger(log))
//	builtins.Register(handlers.PathEcho, handlers.EchoBuilder())
//
//	d := dispatch.New(queueManager, builtins.Resolve,
//		dispatch.WithLogger(log),
//		dispatch.WithMaxRetries(cfg.MaxRetries),
//	)
//
//	verified, err := d.Verify(ctx, cfg.Handlers)
//	if err != nil {
//		return err
//	}
//	workerID, err := reg.Register(ctx, verified)
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(reg.RunHeartbeat(ctx, workerID))
//	g.Go(d.Run(ctx))
package dispatch
