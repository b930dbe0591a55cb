// Package livecache implements a reactive in-process cache: callers
// subscribe to a logical key, receive the cached value(s) immediately,
// trigger a background refresh from their own data source, and keep
// receiving updates whenever any overlapping key is written.
//
// Components:
//   - bucket.Bucket[T]: typed entry store indexed by stream key
//     (in-memory by default; bucket/kv persists over any byte store).
//   - Entry: one cached value plus identity, timestamps and the set of
//     keys that reference it.
//   - Registry: one broadcast channel per composite key, created lazily,
//     torn down only by Close.
//
// Two views exist per cache: the collection view (lists under arbitrary
// keys, plus each value under its own id) and the single view (one
// canonical entry per id). A write to either view re-emits on every
// stream whose key it touched, so "all todos", "open todos" and
// "todo #7" converge without re-fetching.
//
// Keys:
//
//	<key>           - collection view ("all", "7", ...)
//	<id>#single     - single view
//
// Reactive pattern:
//
//	updates, stop, _ := cache.GetList(ctx, "open", Todo.ID, fetchOpen)
//	defer stop()
//	for u := range updates { render(u.Values) } // snapshot, then updates
package livecache
