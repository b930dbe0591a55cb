package bucket

import "time"

// Entry wraps one cached value with its identity, timestamps and the
// ordered set of stream keys whose bucket rows currently reference it.
// The key set and the bucket index must never disagree: a stale key set
// produces missing or phantom notifications downstream.
//
// An Entry is not self-locking. Buckets mutate entries under their own
// locks and the cache engine serializes writers on top of that.
type Entry[T any] struct {
	model     T
	id        string
	createdAt time.Time
	updatedAt time.Time
	keys      []string // insertion order preserved, no duplicates
}

// NewEntry builds a fresh entry with no stream keys. createdAt and
// updatedAt start equal.
func NewEntry[T any](id string, model T) *Entry[T] {
	now := time.Now()
	return &Entry[T]{
		model:     model,
		id:        id,
		createdAt: now,
		updatedAt: now,
	}
}

// Rehydrate reconstructs a persisted entry with its original timestamps
// and key set. Store-backed buckets use it when decoding blobs.
func Rehydrate[T any](id string, model T, createdAt, updatedAt time.Time, streamKeys []string) *Entry[T] {
	e := &Entry[T]{
		model:     model,
		id:        id,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
	for _, k := range streamKeys {
		e.AddKey(k)
	}
	return e
}

func (e *Entry[T]) ID() string           { return e.id }
func (e *Entry[T]) Model() T             { return e.model }
func (e *Entry[T]) CreatedAt() time.Time { return e.createdAt }
func (e *Entry[T]) UpdatedAt() time.Time { return e.updatedAt }

// Update replaces the payload in place and refreshes updatedAt. The id
// is derived once at creation and never recomputed.
func (e *Entry[T]) Update(model T) {
	e.model = model
	e.updatedAt = time.Now()
}

// StreamKeys returns a copy of the entry's key set in insertion order.
func (e *Entry[T]) StreamKeys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// AddKey records streamKey on the entry. Reports false when the key was
// already present.
func (e *Entry[T]) AddKey(streamKey string) bool {
	for _, k := range e.keys {
		if k == streamKey {
			return false
		}
	}
	e.keys = append(e.keys, streamKey)
	return true
}

// RemoveKey drops streamKey from the entry. Reports false when the key
// was not present.
func (e *Entry[T]) RemoveKey(streamKey string) bool {
	for i, k := range e.keys {
		if k == streamKey {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			return true
		}
	}
	return false
}
