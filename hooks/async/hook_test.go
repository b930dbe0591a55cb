package asynchook

import (
	"sync"
	"testing"
)

// countingHooks records deliveries behind a mutex so worker goroutines
// can write while the test reads. An optional gate blocks SubscriberAdded
// until released, which lets tests fill the queue deterministically.
type countingHooks struct {
	mu      sync.Mutex
	added   int
	fanouts int

	gate    chan struct{}
	started chan struct{}
}

func (c *countingHooks) SubscriberAdded(string, int) {
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.added++
	c.mu.Unlock()
}

func (c *countingHooks) SubscriberRemoved(string, int) {}
func (c *countingHooks) SnapshotServed(string, int)    {}
func (c *countingHooks) FetchFailed(string, error)     {}
func (c *countingHooks) WriteFanout(string, int) {
	c.mu.Lock()
	c.fanouts++
	c.mu.Unlock()
}

func (c *countingHooks) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.added, c.fanouts
}

// TestEventsDrainOnClose verifies queued events reach the inner hooks
// before Close returns.
func TestEventsDrainOnClose(t *testing.T) {
	rec := &countingHooks{}
	h := New(rec, 2, 16)

	for i := 0; i < 5; i++ {
		h.SubscriberAdded("k", i)
	}
	h.WriteFanout("k", 3)
	h.Close()

	added, fanouts := rec.counts()
	if added != 5 || fanouts != 1 {
		t.Fatalf("delivered added=%d fanouts=%d, want 5 and 1", added, fanouts)
	}
}

// TestFullQueueDropsInsteadOfBlocking fills the one-slot queue while the
// single worker is parked inside an event, then expects the overflow
// event to be discarded.
func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	rec := &countingHooks{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	h := New(rec, 1, 1)

	h.SubscriberAdded("a", 1)
	<-rec.started // worker is inside the first event, queue empty

	h.SubscriberAdded("b", 2) // fills the queue
	h.SubscriberAdded("c", 3) // dropped

	close(rec.gate)
	h.Close()

	if added, _ := rec.counts(); added != 2 {
		t.Fatalf("delivered %d events, want 2 (third dropped)", added)
	}
}

// TestCloseIsIdempotent double-closes without panicking.
func TestCloseIsIdempotent(t *testing.T) {
	h := New(&countingHooks{}, 1, 4)
	h.Close()
	h.Close()
}
