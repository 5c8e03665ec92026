package jwt

import (
	"encoding/json"
	"errors"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// StandardClaims carries the RFC 7519 registered claims with Unix
// timestamps for the temporal fields. Embed it to add custom claims:
//
//	type SessionClaims struct {
//		jwt.StandardClaims
//		Role string `json:"role"`
//	}
type StandardClaims struct {
	ID        string `json:"jti,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	Audience  string `json:"aud,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

// Service signs and verifies HS256 tokens with a single shared key.
type Service struct {
	signingKey []byte
}

// New creates a Service with the given signing key. The key should be at
// least 32 bytes from a cryptographically secure source.
func New(signingKey []byte) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	return &Service{signingKey: signingKey}, nil
}

// NewFromString creates a Service from a string key.
func NewFromString(signingKey string) (*Service, error) {
	return New([]byte(signingKey))
}

// Generate signs the claims into a compact HS256 token. Claims may be any
// JSON-serializable value; StandardClaims or a struct embedding it are
// typical.
func (s *Service) Generate(claims any) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Join(ErrInvalidClaims, err)
	}
	mapClaims := gojwt.MapClaims{}
	if err := json.Unmarshal(payload, &mapClaims); err != nil {
		return "", errors.Join(ErrInvalidClaims, err)
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, mapClaims).SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return token, nil
}

// Parse verifies the token signature and temporal claims, then unmarshals
// the payload into claims. Pass nil to verify without reading the payload.
// Failures map to the package sentinels: ErrExpiredToken,
// ErrInvalidSignature, ErrUnexpectedSigningMethod, or ErrInvalidToken for
// anything malformed.
func (s *Service) Parse(token string, claims any) error {
	parsed, err := gojwt.Parse(token, func(t *gojwt.Token) (any, error) {
		if t.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigningMethod, t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return translateError(err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	if claims == nil {
		return nil
	}

	payload, err := json.Marshal(parsed.Claims)
	if err != nil {
		return errors.Join(ErrInvalidClaims, err)
	}
	if err := json.Unmarshal(payload, claims); err != nil {
		return errors.Join(ErrInvalidClaims, err)
	}
	return nil
}

// translateError maps golang-jwt parse failures onto the package
// sentinels so callers can switch on errors.Is.
func translateError(err error) error {
	switch {
	case errors.Is(err, ErrUnexpectedSigningMethod):
		return err
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}
