package livecache

import (
	"context"

	"github.com/unkn0wn-root/livecache/bucket"
)

// IDFunc extracts the canonical identity of a value. It must be pure and
// total over every value ever stored for T; the returned string is the
// value's cache key.
type IDFunc[T any] func(v T) string

// FetchFunc loads one value from the external source. ok=false reports
// absence (not an error): the cache is left unchanged and nothing is
// emitted.
type FetchFunc[T any] func(ctx context.Context) (v T, ok bool, err error)

// FetchListFunc loads a list from the external source. An empty result
// reports absence: the cache is left unchanged and nothing is emitted.
type FetchListFunc[T any] func(ctx context.Context) ([]T, error)

// Update is one event on a list stream: the current values for the key,
// or a *FetchError when a refresh failed. Err never closes the stream.
type Update[T any] struct {
	Values []T
	Err    error
}

// Item is one event on a single-value stream.
type Item[T any] struct {
	Value T
	Err   error
}

// Cache is a reactive in-process cache. Reads return a stream that first
// carries the cached snapshot (when one exists) and then every future
// update of the key; writes fan out to every stream whose key overlaps
// the written values.
type Cache[T any] interface {
	// GetList subscribes to key in the collection view, emits the cached
	// snapshot if present, and, when fetch is non-nil, refreshes in the
	// background routing the result through PutList. The returned cancel
	// detaches the subscription and eventually closes the channel; it is
	// idempotent.
	GetList(ctx context.Context, key string, idOf IDFunc[T], fetch FetchListFunc[T]) (<-chan Update[T], context.CancelFunc, error)

	// GetSingle subscribes to one id in the single view. Emissions carry
	// updates only; absence is reported by not emitting.
	GetSingle(ctx context.Context, id string, idOf IDFunc[T], fetch FetchFunc[T]) (<-chan Item[T], context.CancelFunc, error)

	// PutList replaces the collection view of key with values, updates
	// each value's own-id rows in both views, and re-emits every touched
	// stream. An empty values slice is a no-op.
	PutList(ctx context.Context, key string, values []T, idOf IDFunc[T]) error

	// PutSingle is PutList sugar: a one-element list keyed by id.
	PutSingle(ctx context.Context, value T, id string) error

	// Close tears down every stream and waits (bounded by ctx) for
	// in-flight refreshes. Idempotent; later reads and writes return
	// ErrClosed.
	Close(ctx context.Context) error
}

// Options tune the generic reactive cache. Everything is optional: nil
// buckets default to separate in-memory buckets, nil Logger/Hooks to
// no-ops.
type Options[T any] struct {
	Collection bucket.Bucket[T] // collection view; nil => bucket.NewMemory
	Singles    bucket.Bucket[T] // single view; nil => bucket.NewMemory

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

func New[T any](opts Options[T]) (Cache[T], error) {
	return newEngine[T](opts)
}
