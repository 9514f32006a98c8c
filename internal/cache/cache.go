// Package cache defines the best-effort cache collaborator and the
// TTL-based advisory lease built on top of it.
//
// The cache is strictly an accelerator: callers must treat every error as
// a miss and fall back to direct computation. No pattern-based
// invalidation is guaranteed.
package cache

import (
	"context"
	"time"
)

// Cache is the minimal key/value contract: get, set with TTL, delete.
type Cache interface {
	// Get returns the value and true when the key exists and has not
	// expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error
}

// Atomic is implemented by caches that can set a key only if absent in a
// single round trip. The lease uses it when available; otherwise it falls
// back to get-then-set, which is racy but acceptable for an advisory lock.
type Atomic interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
