// Package clientip resolves the originating client IP of a request.
//
// Deployments sit behind a load balancer, so RemoteAddr alone names the
// proxy, not the caller. GetIP walks the usual forwarding headers in
// trust order (CF-Connecting-IP, DO-Connecting-IP, X-Forwarded-For,
// X-Real-IP) and falls back to RemoteAddr. Every candidate is parsed and
// normalized; malformed entries and 0.0.0.0 are skipped.
//
// The request logger and the per-client rate limiter both key on this
// value, wired in through the ClientIP middleware.
package clientip
