package shared

import (
	"context"
	"time"
)

// IdempotencyPending is the value a claimed key holds until its request finishes
const IdempotencyPending = "pending"

// IdempotencyStore remembers client-supplied idempotency keys so a retried
// request returns the first outcome instead of repeating its side effects
type IdempotencyStore interface {
	// Claim reserves key. It returns false if the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Resolve stores the outcome of the request that claimed key
	Resolve(ctx context.Context, key, value string, ttl time.Duration) error
	// Lookup returns the value held by key
	Lookup(ctx context.Context, key string) (string, bool, error)
	// Release drops a claim whose request failed so the client may retry
	Release(ctx context.Context, key string) error
}
