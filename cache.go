package livecache

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/livecache/bucket"
	"github.com/unkn0wn-root/livecache/internal/keys"
)

// Bucket namespaces. The collection view indexes under the logical key
// itself; the single view is suffixed so "7" (a list named 7) and
// "7#single" (the value with id 7) never collide.
const (
	nsCollection = ""
	nsSingle     = "single"
)

type engine[T any] struct {
	collection bucket.Bucket[T]
	singles    bucket.Bucket[T]
	regs       *registry[T]
	log        Logger
	hooks      Hooks

	mu     sync.Mutex // serializes every bucket and registry mutation
	closed bool

	wg        sync.WaitGroup // in-flight refreshes
	closeOnce sync.Once
	closeDone chan struct{} // closed once the last in-flight refresh returns
}

func newEngine[T any](opts Options[T]) (*engine[T], error) {
	// the entry/index invariant assumes one namespace per bucket
	if opts.Collection != nil && opts.Collection == opts.Singles {
		return nil, ErrSharedBucket
	}

	c := &engine[T]{
		collection: opts.Collection,
		singles:    opts.Singles,
		regs:       newRegistry[T](),
		closeDone:  make(chan struct{}),
	}

	// defaults
	if c.collection == nil {
		c.collection = bucket.NewMemory[T]()
	}
	if c.singles == nil {
		c.singles = bucket.NewMemory[T]()
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	return c, nil
}

func (c *engine[T]) GetList(ctx context.Context, key string, idOf IDFunc[T], fetch FetchListFunc[T]) (<-chan Update[T], context.CancelFunc, error) {
	if fetch != nil && idOf == nil {
		return nil, nil, ErrMissingIDFunc
	}
	ck := keys.Composite(key, nsCollection)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, ErrClosed
	}
	br := c.regs.channel(ck)
	sub, out := newListSub[T]()
	detach, active := br.attach(sub)
	c.hooks.SubscriberAdded(ck, active)

	// snapshot while the subscriber queue is already attached, so the
	// emission can never be lost to a subscribe/emit race
	if entries := c.collection.AllForKey(ctx, ck); len(entries) > 0 {
		br.broadcast(Update[T]{Values: models(entries)})
		c.hooks.SnapshotServed(ck, len(entries))
		c.log.Debug("served cached snapshot", Fields{"key": ck, "entries": len(entries)})
	}
	if fetch != nil {
		c.wg.Add(1)
		go c.refreshList(context.WithoutCancel(ctx), key, idOf, fetch)
	}
	c.mu.Unlock()

	return out, c.cancelFunc(ck, br, detach), nil
}

func (c *engine[T]) GetSingle(ctx context.Context, id string, idOf IDFunc[T], fetch FetchFunc[T]) (<-chan Item[T], context.CancelFunc, error) {
	if fetch != nil && idOf == nil {
		return nil, nil, ErrMissingIDFunc
	}
	sk := keys.Composite(id, nsSingle)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, ErrClosed
	}
	br := c.regs.channel(sk)
	sub, out := newItemSub[T]()
	detach, active := br.attach(sub)
	c.hooks.SubscriberAdded(sk, active)

	if entries := c.singles.AllForKey(ctx, sk); len(entries) > 0 {
		br.broadcast(Update[T]{Values: models(entries)})
		c.hooks.SnapshotServed(sk, len(entries))
		c.log.Debug("served cached snapshot", Fields{"key": sk, "entries": len(entries)})
	}
	if fetch != nil {
		c.wg.Add(1)
		go c.refreshSingle(context.WithoutCancel(ctx), id, idOf, fetch)
	}
	c.mu.Unlock()

	return out, c.cancelFunc(sk, br, detach), nil
}

func (c *engine[T]) PutList(ctx context.Context, key string, values []T, idOf IDFunc[T]) error {
	if len(values) == 0 {
		return nil // absent result, cache unchanged
	}
	if idOf == nil {
		return ErrMissingIDFunc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	ck := keys.Composite(key, nsCollection)
	fan := newFanout[T]()

	// Collection view: the key's row is rebuilt from scratch. Entries
	// dropped from the new list stay reachable under their other keys.
	c.collection.RemoveKeyFromValues(ctx, ck)
	for _, v := range values {
		id := idOf(v)
		idKey := keys.Composite(id, nsCollection)
		e := entryByID(c.collection.AllForKey(ctx, idKey), id)
		if e != nil {
			e.Update(v)
		} else {
			e = bucket.NewEntry(id, v)
		}
		fan.add(c.collection.Put(ctx, idKey, e), c.collection)
		fan.add(c.collection.Put(ctx, ck, e), c.collection)
	}

	// Single view: a direct write (one value whose id is the key itself)
	// overwrites; a batch write seeds missing ids only, so a coarse
	// refresh never clobbers a fresher single-item value.
	direct := len(values) == 1 && idOf(values[0]) == key
	for _, v := range values {
		id := idOf(v)
		sk := keys.Composite(id, nsSingle)
		e := entryByID(c.singles.AllForKey(ctx, sk), id)
		switch {
		case e == nil:
			c.singles.Put(ctx, sk, bucket.NewEntry(id, v))
		case direct:
			e.Update(v)
			c.singles.Put(ctx, sk, e)
		}
		fan.addKey(sk, c.singles)
	}

	// re-emit the current state of every touched key so collection, id
	// and single subscribers all converge
	for _, k := range fan.order {
		br := c.regs.channel(k)
		if br == nil {
			continue
		}
		br.broadcast(Update[T]{Values: models(fan.owner[k].AllForKey(ctx, k))})
	}
	c.hooks.WriteFanout(ck, len(fan.order))
	c.log.Debug("write fanned out", Fields{"key": ck, "streams": len(fan.order)})
	return nil
}

func (c *engine[T]) PutSingle(ctx context.Context, value T, id string) error {
	return c.PutList(ctx, id, []T{value}, func(T) string { return id })
}

func (c *engine[T]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.regs.closeAll()

		// in-flight refreshes run to completion
		go func() {
			c.wg.Wait()
			close(c.closeDone)
		}()
		c.log.Info("cache closed", nil)
	})

	// bound the wait by ctx; ctx expiry never masks a finished teardown
	select {
	case <-c.closeDone:
		return nil
	case <-ctx.Done():
		select {
		case <-c.closeDone:
			return nil
		default:
		}
		return ctx.Err()
	}
}

// refreshList runs the caller's fetch to completion and applies the
// result. The ctx it receives is already detached from the caller's, so
// cancelling a read never cancels its in-flight refresh.
func (c *engine[T]) refreshList(ctx context.Context, key string, idOf IDFunc[T], fetch FetchListFunc[T]) {
	defer c.wg.Done()

	values, err := fetch(ctx)
	if err != nil {
		c.fetchFailed(keys.Composite(key, nsCollection), key, err)
		return
	}
	if len(values) == 0 {
		c.log.Debug("refresh returned nothing, cache unchanged", Fields{"key": key})
		return
	}
	if err := c.PutList(ctx, key, values, idOf); err != nil {
		c.log.Debug("refresh result dropped", Fields{"key": key, "err": err})
	}
}

func (c *engine[T]) refreshSingle(ctx context.Context, id string, idOf IDFunc[T], fetch FetchFunc[T]) {
	defer c.wg.Done()

	v, ok, err := fetch(ctx)
	if err != nil {
		c.fetchFailed(keys.Composite(id, nsSingle), id, err)
		return
	}
	if !ok {
		c.log.Debug("refresh reported absence, cache unchanged", Fields{"id": id})
		return
	}
	if err := c.PutList(ctx, id, []T{v}, idOf); err != nil {
		c.log.Debug("refresh result dropped", Fields{"id": id, "err": err})
	}
}

// fetchFailed delivers err as an event on the requested key's stream
// only; other keys observe nothing and the stream stays open.
func (c *engine[T]) fetchFailed(streamKey, key string, err error) {
	c.hooks.FetchFailed(streamKey, err)
	c.log.Warn("fetch failed", Fields{"key": key, "err": err})
	if br := c.regs.channel(streamKey); br != nil {
		br.broadcast(Update[T]{Err: &FetchError{Key: key, Err: err}})
	}
}

func (c *engine[T]) cancelFunc(streamKey string, br *broadcaster[T], detach func() bool) context.CancelFunc {
	return func() {
		if detach() {
			c.hooks.SubscriberRemoved(streamKey, br.active())
		}
	}
}

// entryByID picks the entry with the given id out of a row. Rows under an
// id key can hold foreign entries too, when a caller names a list after
// some value's id.
func entryByID[T any](entries []*bucket.Entry[T], id string) *bucket.Entry[T] {
	for _, e := range entries {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

func models[T any](entries []*bucket.Entry[T]) []T {
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.Model()
	}
	return out
}

// fanout collects touched composite keys in first-touch order, keeping
// track of which bucket owns each key so re-emission reads the right
// view.
type fanout[T any] struct {
	order []string
	owner map[string]bucket.Bucket[T]
}

func newFanout[T any]() *fanout[T] {
	return &fanout[T]{owner: make(map[string]bucket.Bucket[T])}
}

func (f *fanout[T]) addKey(k string, b bucket.Bucket[T]) {
	if _, ok := f.owner[k]; ok {
		return
	}
	f.owner[k] = b
	f.order = append(f.order, k)
}

func (f *fanout[T]) add(ks []string, b bucket.Bucket[T]) {
	for _, k := range ks {
		f.addKey(k, b)
	}
}
