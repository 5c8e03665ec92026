// Package auth implements the guest identity scheme: every visitor gets a
// random user id wrapped in a signed token, with a server-side session
// record mirroring the token lifetime.
//
// A token passes verification only when its HS256 signature holds AND the
// token:{jwt} session record still maps to the same user. The two failure
// modes stay distinct: ErrUnauthenticated covers bad or expired tokens,
// ErrRevoked covers well-signed tokens whose session is gone. Both map to
// 401 at the HTTP boundary.
package auth
