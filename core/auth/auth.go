package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/promptq/promptq/core/logger"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/pkg/jwt"
)

const (
	tokenKeyPrefix = "token:"

	// DefaultTokenTTL mirrors the 90-day access token lifetime.
	DefaultTokenTTL = 90 * 24 * time.Hour
)

// Service issues and verifies access tokens. A token is valid only while
// both its signature holds and its server-side session record exists, so
// deleting the record revokes the token before its expiry.
type Service struct {
	store  store.Store
	signer *jwt.Service
	ttl    time.Duration
	log    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTokenTTL overrides the token lifetime. Applies to both the JWT
// expiry and the session record TTL.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates an auth service.
func New(st store.Store, signer *jwt.Service, opts ...Option) *Service {
	s := &Service{
		store:  st,
		signer: signer,
		ttl:    DefaultTokenTTL,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenTTL returns the configured token lifetime. Cookie Max-Age follows it.
func (s *Service) TokenTTL() time.Duration {
	return s.ttl
}

// IssueGuest mints a fresh guest identity: a random user id with a signed
// token and session record.
func (s *Service) IssueGuest(ctx context.Context) (token, userID string, err error) {
	userID = uuid.NewString()
	token, err = s.Issue(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return token, userID, nil
}

// Issue signs a token for the user and records the session under
// token:{jwt} so verification can check it server-side.
func (s *Service) Issue(ctx context.Context, userID string) (string, error) {
	token, err := s.signer.Generate(jwt.StandardClaims{
		Subject:   userID,
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	if err := s.store.Set(ctx, tokenKey(token), userID, s.ttl); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "session issued",
		logger.Component("auth"),
		logger.UserID(userID),
		slog.Duration("ttl", s.ttl),
	)
	return token, nil
}

// Verify checks the token signature and the server-side session record.
// The returned error classifies the outcome: nil for a valid token,
// ErrUnauthenticated for anything unsigned or expired, ErrRevoked when the
// signature holds but the session record is gone or names another user.
// Any other error is a store failure.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	var claims jwt.StandardClaims
	if err := s.signer.Parse(token, &claims); err != nil {
		return "", errors.Join(ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", ErrUnauthenticated
	}

	stored, err := s.store.Get(ctx, tokenKey(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrRevoked
		}
		return "", fmt.Errorf("verify token: %w", err)
	}
	if stored != claims.Subject {
		return "", ErrRevoked
	}
	return claims.Subject, nil
}

// Renew extends the session record TTL. Called per request so the session
// stays alive as long as the token is in use.
func (s *Service) Renew(ctx context.Context, token string) error {
	if err := s.store.Expire(ctx, tokenKey(token), s.ttl); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRevoked
		}
		return fmt.Errorf("renew token: %w", err)
	}
	return nil
}

// Revoke drops the session record, invalidating the token immediately.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if err := s.store.Del(ctx, tokenKey(token)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.log.InfoContext(ctx, "session revoked", logger.Component("auth"))
	return nil
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}
