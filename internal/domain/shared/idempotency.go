package shared

import (
	"context"
	"time"
)

// IdempotencyStore records identifiers of already-processed deliveries so
// redelivered events can be short-circuited cheaply. Entries expire after a
// TTL; the store is an optimization, not a correctness mechanism: the
// durable natural-key upsert remains the safety net against duplicates.
type IdempotencyStore interface {
	// MarkProcessed records the identifier and reports whether it was newly
	// recorded. A false return means the delivery was seen before within the
	// TTL window.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the identifier has been recorded and has
	// not yet expired.
	IsProcessed(ctx context.Context, id string) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}
