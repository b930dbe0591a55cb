// Package bucket defines the storage model behind the cache: entries
// wrapping one value each, and buckets indexing entries under stream keys.
//
// One entry may be indexed under many keys at once (a value cached inside
// several lists), and every row holds the same *Entry, so an in-place
// update through one key is visible through all of them. Implementations
// MUST keep the entry/index invariant: an entry's StreamKeys always equals
// the set of rows that currently point at it. Put and RemoveKeyFromValues
// maintain it; a partial write that breaks it produces stale or missing
// notifications in the engine.
package bucket

import "context"

// Bucket maps stream keys to ordered lists of entries.
//
// Stream keys arriving here are already namespace-qualified; the bucket
// treats them as opaque strings. Implementations must be safe for
// concurrent use.
type Bucket[T any] interface {
	// Put indexes e under streamKey and records streamKey on the entry.
	// An existing entry with the same id under streamKey is replaced in
	// place (and loses streamKey from its own key set); otherwise e is
	// appended. Put returns every stream key now referencing e, which the
	// engine uses as the notification fan-out set.
	Put(ctx context.Context, streamKey string, e *Entry[T]) []string

	// AllForKey returns the entries indexed under streamKey in insertion
	// order. The returned slice is the caller's to keep; the entries are
	// shared.
	AllForKey(ctx context.Context, streamKey string) []*Entry[T]

	// RemoveKeyFromValues deletes the streamKey row and detaches
	// streamKey from every entry the row referenced. Entries stay
	// reachable under their remaining keys.
	RemoveKeyFromValues(ctx context.Context, streamKey string)
}
