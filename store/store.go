// Package store defines the byte-store abstraction consumed by
// store-backed buckets.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no prepended
// or appended metadata, no re-encoding, no mutation). If a store performs
// internal transforms (e.g., compression), they MUST be fully reversed so
// that the bytes returned by Get match the bytes given to Set.
//
// Important: the keyspaces "e:<prefix>" and "i:<prefix>" are owned by the
// kv bucket. External code MUST NOT write values under these prefixes.
// Foreign writes may be treated as corruption by strict frame validation
// and deleted.
package store

import "context"

// Store is a minimal byte store. Must be safe for concurrent use and must
// be byte-for-byte transparent: Get must return exactly the []byte
// previously passed to Set for the same key. Implementations must not
// prepend/append metadata, transcode, or otherwise mutate values.
//
// Stores that evict (capacity pressure, aging windows) make a bucket built
// on top of them lossy. That is acceptable only when every cached value can
// be repopulated by a fetch.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
