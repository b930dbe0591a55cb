// Package asynchook decorates a Hooks implementation with a worker pool
// so slow sinks (network, disk) never stall the cache's hot paths.
//
// Events are queued on a bounded channel; when the queue is full the event
// is dropped rather than blocking the caller. Close drains the queue and
// stops the workers.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    FetchFailedEvery: 1,  // log every fetch failure
//	    SnapshotEvery:    10, // sample snapshots: ~every 10th
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := livecache.New[User](livecache.Options[User]{
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/livecache"
)

type Hooks struct {
	inner livecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ livecache.Hooks = (*Hooks)(nil)

func New(inner livecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SubscriberAdded(k string, n int)   { h.try(func() { h.inner.SubscriberAdded(k, n) }) }
func (h *Hooks) SubscriberRemoved(k string, n int) { h.try(func() { h.inner.SubscriberRemoved(k, n) }) }
func (h *Hooks) SnapshotServed(k string, n int)    { h.try(func() { h.inner.SnapshotServed(k, n) }) }
func (h *Hooks) FetchFailed(k string, err error)   { h.try(func() { h.inner.FetchFailed(k, err) }) }
func (h *Hooks) WriteFanout(k string, n int)       { h.try(func() { h.inner.WriteFanout(k, n) }) }
