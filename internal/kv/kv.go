package kv

import (
	"context"
	"errors"
	"strings"
	"time"
)

const namespace = "ejare"

var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value surface shared by the rate limiters, token
// revocation and the contract cache. Every key may carry a TTL.
type Store interface {
	// Increment bumps a counter and (re)arms its TTL, so the window slides
	// from the most recent increment.
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
	// Decrement gives back one count without touching the TTL. A counter
	// that reaches zero is removed.
	Decrement(ctx context.Context, key string) (int, error)
	GetCount(ctx context.Context, key string) (int, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

func buildKey(parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

func RateLimitKey(scope, id string) string {
	return buildKey("rate_limit", scope, id)
}

func RevokedTokenKey(jti string) string {
	return buildKey("revoked", jti)
}

func ContractCacheKey(contractNumber string) string {
	return buildKey("contract", contractNumber)
}
