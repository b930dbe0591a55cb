// Package kv implements a Bucket on top of a byte store. Each entry is
// framed into a blob keyed by its id; each stream key owns an ordered id
// index. The blob is canonical for every index that references the id,
// so all stream keys observe one shared entry state per id.
//
// The Bucket contract has no error path. Store and codec failures degrade
// to misses or skipped writes and surface through the optional OnError
// callback and the Logger instead. Corrupt blobs and indexes self-heal:
// they are deleted on read and pruned from their indexes.
package kv

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unkn0wn-root/livecache"
	"github.com/unkn0wn-root/livecache/bucket"
	"github.com/unkn0wn-root/livecache/codec"
	"github.com/unkn0wn-root/livecache/internal/wire"
	"github.com/unkn0wn-root/livecache/store"
)

// Bucket persists entries in a store.Store. Safe for concurrent use; all
// read-modify-write cycles run under one internal mutex.
type Bucket[T any] struct {
	store   store.Store
	codec   codec.Codec[T]
	prefix  string
	log     livecache.Logger
	onError func(op, key string, err error)
	cost    func(key string, frame []byte) int64

	mu sync.Mutex
}

var _ bucket.Bucket[struct{}] = (*Bucket[struct{}])(nil)

type Config[T any] struct {
	Store store.Store
	Codec codec.Codec[T]

	// Prefix isolates this bucket's keyspace when several buckets share
	// one store. Blob keys become "e:<prefix>:<id>", index keys
	// "i:<prefix>:<streamKey>".
	Prefix string

	Logger livecache.Logger

	// OnError observes store and codec failures (op names the failed
	// step). Optional.
	OnError func(op, key string, err error)

	// Cost computes the store cost charged for a frame. nil charges 1
	// per frame; pass func(_ string, f []byte) int64 { return int64(len(f)) }
	// for byte-budgeted stores like ristretto.
	Cost func(key string, frame []byte) int64
}

func New[T any](cfg Config[T]) (*Bucket[T], error) {
	if cfg.Store == nil {
		return nil, errors.New("kv: store is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("kv: codec is required")
	}

	b := &Bucket[T]{
		store:   cfg.Store,
		codec:   cfg.Codec,
		log:     cfg.Logger,
		onError: cfg.OnError,
		cost:    cfg.Cost,
	}
	if cfg.Prefix != "" {
		b.prefix = cfg.Prefix + ":"
	}
	if b.log == nil {
		b.log = livecache.NopLogger{}
	}
	if b.onError == nil {
		b.onError = func(string, string, error) {}
	}
	if b.cost == nil {
		b.cost = func(string, []byte) int64 { return 1 }
	}
	return b, nil
}

func (b *Bucket[T]) blobKey(id string) string         { return "e:" + b.prefix + id }
func (b *Bucket[T]) indexKey(streamKey string) string { return "i:" + b.prefix + streamKey }

// Put upserts e under streamKey. Because the id's blob is shared by every
// index referencing it, e first adopts any stream keys the stored blob
// holds that it does not, then overwrites the blob. An index that fails
// to load is left untouched. Returns the entry's stream keys after the
// write.
func (b *Bucket[T]) Put(ctx context.Context, streamKey string, e *bucket.Entry[T]) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	e.AddKey(streamKey)
	if prior, ok, err := b.loadEntry(ctx, e.ID()); err == nil && ok {
		for _, k := range prior.StreamKeys() {
			e.AddKey(k)
		}
	}
	if b.storeEntry(ctx, e) {
		if ids, err := b.loadIndex(ctx, streamKey); err == nil && !containsID(ids, e.ID()) {
			b.storeIndex(ctx, streamKey, append(ids, e.ID()))
		}
	}
	return e.StreamKeys()
}

// AllForKey returns the entries indexed under streamKey in insertion
// order. Ids whose blobs vanished or failed to decode are pruned from
// the index; ids that merely failed to load (store error) are kept. An
// index that fails to load reads as a miss.
func (b *Bucket[T]) AllForKey(ctx context.Context, streamKey string) []*bucket.Entry[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.loadIndex(ctx, streamKey)
	if err != nil || len(ids) == 0 {
		return nil
	}

	out := make([]*bucket.Entry[T], 0, len(ids))
	keep := ids[:0]
	for _, id := range ids {
		e, ok, err := b.loadEntry(ctx, id)
		if err != nil {
			keep = append(keep, id)
			continue
		}
		if !ok {
			continue
		}
		out = append(out, e)
		keep = append(keep, id)
	}
	if len(keep) != len(ids) {
		b.storeIndex(ctx, streamKey, keep)
		b.log.Debug("pruned index", livecache.Fields{"key": b.indexKey(streamKey), "kept": len(keep)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RemoveKeyFromValues detaches streamKey from every entry it indexes and
// drops the index. Entries left without stream keys are deleted outright.
// An index that fails to load is left in place, members untouched.
func (b *Bucket[T]) RemoveKeyFromValues(ctx context.Context, streamKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.loadIndex(ctx, streamKey)
	if err != nil {
		return
	}
	for _, id := range ids {
		e, ok, err := b.loadEntry(ctx, id)
		if err != nil || !ok {
			continue
		}
		if !e.RemoveKey(streamKey) {
			continue
		}
		if len(e.StreamKeys()) == 0 {
			if err := b.store.Del(ctx, b.blobKey(id)); err != nil {
				b.fail("entry del", b.blobKey(id), err)
			}
			continue
		}
		b.storeEntry(ctx, e)
	}
	if err := b.store.Del(ctx, b.indexKey(streamKey)); err != nil {
		b.fail("index del", b.indexKey(streamKey), err)
	}
}

// loadEntry decodes the blob for id. A store error comes back as err;
// misses and healed (corrupt, undecodable or foreign) blobs come back as
// ok=false with a nil error.
func (b *Bucket[T]) loadEntry(ctx context.Context, id string) (*bucket.Entry[T], bool, error) {
	k := b.blobKey(id)
	raw, ok, err := b.store.Get(ctx, k)
	if err != nil {
		b.fail("entry get", k, err)
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	fr, err := wire.DecodeEntry(raw)
	if err != nil {
		b.heal(ctx, "entry decode", k, err)
		return nil, false, nil
	}
	if fr.ID != id {
		b.heal(ctx, "entry id mismatch", k, errors.New("kv: blob id does not match its key"))
		return nil, false, nil
	}
	model, err := b.codec.Decode(fr.Payload)
	if err != nil {
		b.heal(ctx, "payload decode", k, err)
		return nil, false, nil
	}
	return bucket.Rehydrate(fr.ID, model, time.Unix(0, fr.CreatedAt), time.Unix(0, fr.UpdatedAt), fr.Keys), true, nil
}

// storeEntry frames and writes e's blob. Reports whether the write landed.
func (b *Bucket[T]) storeEntry(ctx context.Context, e *bucket.Entry[T]) bool {
	k := b.blobKey(e.ID())
	payload, err := b.codec.Encode(e.Model())
	if err != nil {
		b.fail("payload encode", k, err)
		return false
	}
	frame, err := wire.EncodeEntry(wire.Entry{
		ID:        e.ID(),
		CreatedAt: e.CreatedAt().UnixNano(),
		UpdatedAt: e.UpdatedAt().UnixNano(),
		Keys:      e.StreamKeys(),
		Payload:   payload,
	})
	if err != nil {
		b.fail("entry encode", k, err)
		return false
	}

	ok, err := b.store.Set(ctx, k, frame, b.cost(k, frame))
	if err != nil {
		b.fail("entry set", k, err)
		return false
	}
	if !ok {
		b.log.Debug("entry write rejected by store", livecache.Fields{"key": k})
	}
	return ok
}

// loadIndex returns the ordered id list for streamKey. A store error
// comes back as err; missing and healed corrupt indexes read as empty
// with a nil error.
func (b *Bucket[T]) loadIndex(ctx context.Context, streamKey string) ([]string, error) {
	k := b.indexKey(streamKey)
	raw, ok, err := b.store.Get(ctx, k)
	if err != nil {
		b.fail("index get", k, err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	ids, err := wire.DecodeIndex(raw)
	if err != nil {
		b.heal(ctx, "index decode", k, err)
		return nil, nil
	}
	return ids, nil
}

func (b *Bucket[T]) storeIndex(ctx context.Context, streamKey string, ids []string) {
	k := b.indexKey(streamKey)
	if len(ids) == 0 {
		if err := b.store.Del(ctx, k); err != nil {
			b.fail("index del", k, err)
		}
		return
	}
	frame, err := wire.EncodeIndex(ids)
	if err != nil {
		b.fail("index encode", k, err)
		return
	}

	ok, err := b.store.Set(ctx, k, frame, b.cost(k, frame))
	if err != nil {
		b.fail("index set", k, err)
		return
	}
	if !ok {
		b.log.Debug("index write rejected by store", livecache.Fields{"key": k})
	}
}

func (b *Bucket[T]) fail(op, key string, err error) {
	b.onError(op, key, err)
	b.log.Warn("store operation failed", livecache.Fields{"op": op, "key": key, "err": err})
}

// heal deletes a frame that failed validation and reports it.
func (b *Bucket[T]) heal(ctx context.Context, op, key string, err error) {
	_ = b.store.Del(ctx, key)
	b.onError(op, key, err)
	b.log.Debug("healed corrupt frame", livecache.Fields{"op": op, "key": key, "err": err})
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
