package shared

import (
	"context"
	"time"
)

// IdempotencyStore records operation keys that have already been processed,
// so a retried document application does not post twice. Implementations
// must make MarkProcessed atomic: the first caller wins, later callers see
// the key as already processed.
type IdempotencyStore interface {
	// MarkProcessed records the key and returns true if this call was the
	// first to record it. Returns false when the key was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the key has been recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Clear removes the key, allowing the operation to run again
	// (used when the guarded operation failed after marking).
	Clear(ctx context.Context, key string) error
}
