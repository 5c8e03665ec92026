// Package jwt signs and parses the HS256 tokens the session layer rides
// on. It wraps github.com/golang-jwt/jwt behind a two-method Service so
// the rest of the code never touches library types:
//
//	svc, err := jwt.NewFromString(cfg.SecretKey)
//	token, err := svc.Generate(claims)   // claims: any JSON-marshalable struct
//	err = svc.Parse(token, &claims)      // verifies signature and exp/nbf
//
// Parse rejects any token whose header names an algorithm other than
// HS256, so a key-confusion downgrade cannot slip through. Library
// failures are translated to this package's sentinel errors
// (ErrExpiredToken, ErrInvalidSignature, ...) for errors.Is matching.
package jwt
