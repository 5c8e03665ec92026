// Package health implements the liveness and readiness probes.
//
// Liveness only proves the process answers HTTP. Readiness runs the
// dependency checks the application wires in (store round-trip,
// reconcile loop, limiter janitor) and flips to 503 when any fails, so
// load balancers stop routing to an instance that cannot serve:
//
//	r.Get("/health/live", health.Liveness[*app.Context])
//	r.Get("/health/ready", health.Readiness[*app.Context](log,
//		st.Healthcheck,
//		fleet.Healthcheck,
//	))
package health
