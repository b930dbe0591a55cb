package livecache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths, under the engine lock.
type Hooks interface {
	// A subscriber attached to streamKey. active is the subscriber count
	// after the attach.
	SubscriberAdded(streamKey string, active int)

	// A subscriber detached from streamKey (its cancel func ran). active
	// is the subscriber count after the detach.
	SubscriberRemoved(streamKey string, active int)

	// A read found cached entries and re-emitted them on streamKey.
	SnapshotServed(streamKey string, entries int)

	// A refresh for streamKey failed. The error also reaches subscribers
	// as an event; this hook exists for metrics/alerting taps.
	FetchFailed(streamKey string, err error)

	// A write finished and re-emitted keys streams (collection key plus
	// every touched id key in each namespace).
	WriteFanout(streamKey string, keys int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SubscriberAdded(string, int)   {}
func (NopHooks) SubscriberRemoved(string, int) {}
func (NopHooks) SnapshotServed(string, int)    {}
func (NopHooks) FetchFailed(string, error)     {}
func (NopHooks) WriteFanout(string, int)       {}
