package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lease is an advisory refresh lock: a cache key holding an owner token
// with a TTL. A crashed holder self-heals when the TTL expires. It is not
// a hard distributed lock; a cache outage can allow duplicate holders,
// which callers must tolerate.
type Lease struct {
	cache Cache
	key   string
	token string
}

// AcquireLease tries to take the lease at key for ttl. held is false when
// another owner already holds it. An error means the cache itself failed;
// callers should treat that as "proceed without the lease".
func AcquireLease(ctx context.Context, c Cache, key string, ttl time.Duration) (lease *Lease, held bool, err error) {
	token := uuid.New().String()

	if atomic, ok := c.(Atomic); ok {
		acquired, err := atomic.SetNX(ctx, key, token, ttl)
		if err != nil {
			return nil, false, err
		}
		if !acquired {
			return nil, false, nil
		}
		return &Lease{cache: c, key: key, token: token}, true, nil
	}

	// Get-then-set fallback for caches without SetNX.
	if _, exists, err := c.Get(ctx, key); err != nil {
		return nil, false, err
	} else if exists {
		return nil, false, nil
	}
	if err := c.Set(ctx, key, token, ttl); err != nil {
		return nil, false, err
	}
	return &Lease{cache: c, key: key, token: token}, true, nil
}

// Release frees the lease if this holder still owns it. A holder whose
// lease expired and was re-acquired by someone else must not delete the
// new owner's token.
func (l *Lease) Release(ctx context.Context) error {
	val, ok, err := l.cache.Get(ctx, l.key)
	if err != nil {
		return err
	}
	if !ok || val != l.token {
		return nil
	}
	return l.cache.Del(ctx, l.key)
}
