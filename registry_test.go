package livecache

import (
	"errors"
	"testing"
	"time"
)

func recvRaw[T any](t *testing.T, ch <-chan Update[T]) Update[T] {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatalf("stream closed while awaiting update")
		}
		return u
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out awaiting update")
	}
	return Update[T]{}
}

func wantClosed[E any](t *testing.T, ch <-chan E) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			// drain queued events until close
		case <-deadline:
			t.Fatalf("stream did not close")
		}
	}
}

func TestBroadcasterDeliversInEmissionOrder(t *testing.T) {
	b := &broadcaster[int]{}
	sub, out := newListSub[int]()
	detach, active := b.attach(sub)
	defer detach()

	if active != 1 {
		t.Fatalf("active = %d, want 1", active)
	}

	b.broadcast(Update[int]{Values: []int{1}})
	b.broadcast(Update[int]{Values: []int{2}})
	b.broadcast(Update[int]{Values: []int{3}})

	for want := 1; want <= 3; want++ {
		u := recvRaw(t, out)
		if len(u.Values) != 1 || u.Values[0] != want {
			t.Fatalf("got %v, want [%d]", u.Values, want)
		}
	}
}

func TestBroadcasterDetachStopsDeliveryAndClosesStream(t *testing.T) {
	b := &broadcaster[int]{}
	sub, out := newListSub[int]()
	detach, _ := b.attach(sub)

	b.broadcast(Update[int]{Values: []int{1}})

	if !detach() {
		t.Fatalf("first detach should report removal")
	}
	if detach() {
		t.Fatalf("second detach should be a no-op")
	}

	// event queued before detach still drains, then the channel closes
	if u := recvRaw(t, out); u.Values[0] != 1 {
		t.Fatalf("queued event lost: %v", u)
	}
	b.broadcast(Update[int]{Values: []int{2}}) // no subscriber anymore
	wantClosed(t, out)
}

func TestBroadcasterCloseStopsEverySink(t *testing.T) {
	b := &broadcaster[int]{}
	s1, out1 := newListSub[int]()
	s2, out2 := newListSub[int]()
	d1, _ := b.attach(s1)
	b.attach(s2)

	b.broadcast(Update[int]{Values: []int{7}})
	b.close()
	b.close() // idempotent
	// broadcasting after close is a no-op
	b.broadcast(Update[int]{Values: []int{8}})

	if u := recvRaw(t, out1); u.Values[0] != 7 {
		t.Fatalf("queued event lost on out1: %v", u)
	}
	wantClosed(t, out1)
	if u := recvRaw(t, out2); u.Values[0] != 7 {
		t.Fatalf("queued event lost on out2: %v", u)
	}
	wantClosed(t, out2)

	// detach after teardown reports false and must not panic
	if d1() {
		t.Fatalf("detach after close should report false")
	}
	if b.active() != 0 {
		t.Fatalf("active = %d after close", b.active())
	}
}

func TestBroadcasterAttachAfterCloseYieldsClosedStream(t *testing.T) {
	b := &broadcaster[int]{}
	b.close()

	sub, out := newListSub[int]()
	detach, active := b.attach(sub)
	if active != 0 {
		t.Fatalf("active = %d, want 0", active)
	}
	if detach() {
		t.Fatalf("detach on rejected attach should report false")
	}
	wantClosed(t, out)
}

func TestItemSubMapsUpdatesToItems(t *testing.T) {
	sub, out := newItemSub[string]()

	sub.deliver(Update[string]{Values: []string{"first", "second"}})
	sub.deliver(Update[string]{}) // empty update: absence stays silent
	boom := errors.New("boom")
	sub.deliver(Update[string]{Err: boom})
	sub.stop()

	it := <-out
	if it.Err != nil || it.Value != "first" {
		t.Fatalf("first item = %+v", it)
	}
	it = <-out
	if !errors.Is(it.Err, boom) {
		t.Fatalf("error item = %+v", it)
	}
	if _, ok := <-out; ok {
		t.Fatalf("stream should be closed after stop")
	}
}

func TestRegistryLazyCreateAndReuse(t *testing.T) {
	r := newRegistry[int]()

	b1 := r.channel("k")
	b2 := r.channel("k")
	if b1 == nil || b1 != b2 {
		t.Fatalf("registry should hand back the same broadcaster per key")
	}
	if r.channel("other") == b1 {
		t.Fatalf("distinct keys should get distinct broadcasters")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := newRegistry[int]()

	b := r.channel("k")
	sub, out := newListSub[int]()
	b.attach(sub)

	r.closeAll()
	r.closeAll() // safe to repeat

	wantClosed(t, out)
	if r.channel("k") != nil {
		t.Fatalf("channel after closeAll should be nil")
	}
	if r.channel("new") != nil {
		t.Fatalf("new keys after closeAll should be nil")
	}
}
