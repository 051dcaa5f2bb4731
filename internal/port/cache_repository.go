package port

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

type CacheRepository interface {
	// Get returns the cached bytes for key or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, expiring after ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type TokenDenylist interface {
	// RevokeToken marks a token id as revoked until ttl elapses
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsTokenRevoked reports whether the token id was revoked
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}
