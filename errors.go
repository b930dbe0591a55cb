package livecache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by reads and writes after Close.
	ErrClosed = errors.New("livecache: cache is closed")

	// ErrMissingIDFunc is returned when a fetch function is supplied
	// without an id extractor. The write path cannot route fetched values
	// without one, so the call fails before any channel is touched.
	ErrMissingIDFunc = errors.New("livecache: fetch function requires an id extractor")

	// ErrSharedBucket is returned by New when the collection and single
	// buckets are the same instance. The key-consistency invariants
	// assume each bucket has exactly one namespace.
	ErrSharedBucket = errors.New("livecache: collection and single buckets must be distinct")
)

// FetchError wraps a failed refresh. It is delivered as an error event on
// the requested key's stream; the stream itself stays open.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q failed: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
