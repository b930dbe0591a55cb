package livecache

import (
	"sync"

	"github.com/gammazero/channelqueue"
)

// subscriber is one attached sink on a key's broadcaster. Implementations
// queue events on an unbounded channel queue so emitters never block on
// slow consumers; stop closes the queue input, letting buffered events
// drain before the consumer-facing channel closes.
type subscriber[T any] interface {
	deliver(Update[T])
	stop()
}

// listSub passes updates through unchanged for GetList callers.
type listSub[T any] struct {
	in chan<- Update[T]
}

func newListSub[T any]() (*listSub[T], <-chan Update[T]) {
	cq := channelqueue.New[Update[T]](-1)
	return &listSub[T]{in: cq.In()}, cq.Out()
}

func (s *listSub[T]) deliver(u Update[T]) { s.in <- u }
func (s *listSub[T]) stop()               { close(s.in) }

// itemSub maps list updates onto single-value events for GetSingle
// callers: first value wins, empty updates are dropped (updates only;
// absence is reported by not emitting), errors pass through.
type itemSub[T any] struct {
	in chan<- Item[T]
}

func newItemSub[T any]() (*itemSub[T], <-chan Item[T]) {
	cq := channelqueue.New[Item[T]](-1)
	return &itemSub[T]{in: cq.In()}, cq.Out()
}

func (s *itemSub[T]) deliver(u Update[T]) {
	if u.Err != nil {
		s.in <- Item[T]{Err: u.Err}
		return
	}
	if len(u.Values) == 0 {
		return
	}
	s.in <- Item[T]{Value: u.Values[0]}
}

func (s *itemSub[T]) stop() { close(s.in) }

// broadcaster is one composite key's multi-subscriber channel. Every
// subscriber attached at emission time receives the event, in emission
// order.
type broadcaster[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	closed bool
}

// attach adds s and returns a detach func plus the subscriber count
// after the attach. The detach func is idempotent and reports whether
// this call removed s (false on repeats, or when teardown got there
// first).
func (b *broadcaster[T]) attach(s subscriber[T]) (detach func() bool, active int) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.stop()
		return func() bool { return false }, 0
	}
	b.subs = append(b.subs, s)
	n := len(b.subs)
	b.mu.Unlock()

	var once sync.Once
	return func() bool {
		removed := false
		once.Do(func() { removed = b.detach(s) })
		return removed
	}, n
}

func (b *broadcaster[T]) detach(s subscriber[T]) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false // teardown already stopped every sink
	}
	for i := range b.subs {
		if b.subs[i] == s {
			last := len(b.subs) - 1
			b.subs[i] = b.subs[last]
			b.subs[last] = nil
			b.subs = b.subs[:last]
			s.stop()
			return true
		}
	}
	return false
}

// broadcast queues u on every attached subscriber. No-op after close.
func (b *broadcaster[T]) broadcast(u Update[T]) {
	b.mu.Lock()
	if !b.closed {
		for _, s := range b.subs {
			s.deliver(u)
		}
	}
	b.mu.Unlock()
}

func (b *broadcaster[T]) active() int {
	b.mu.Lock()
	n := len(b.subs)
	b.mu.Unlock()
	return n
}

// close stops every sink and rejects later attaches. Queued events still
// drain to consumers. Idempotent.
func (b *broadcaster[T]) close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for _, s := range b.subs {
			s.stop()
		}
		b.subs = nil
	}
	b.mu.Unlock()
}

// registry holds one broadcaster per composite key, created lazily on the
// first read or write of the key and kept until closeAll. Rows are never
// removed earlier: a key once observed stays subscribable for the
// engine's lifetime.
type registry[T any] struct {
	mu     sync.RWMutex
	chans  map[string]*broadcaster[T]
	closed bool
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{chans: make(map[string]*broadcaster[T])}
}

// channel returns key's broadcaster, creating it on first access. After
// closeAll it returns nil.
func (r *registry[T]) channel(key string) *broadcaster[T] {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil
	}
	b, ok := r.chans[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if b, ok = r.chans[key]; !ok {
		b = &broadcaster[T]{}
		r.chans[key] = b
	}
	return b
}

// closeAll closes every broadcaster and retires the registry. Safe to
// call more than once.
func (r *registry[T]) closeAll() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	chans := r.chans
	r.chans = nil
	r.mu.Unlock()

	for _, b := range chans {
		b.close()
	}
}
