// Package sloghooks logs cache events through log/slog. Stream keys are
// redacted before logging since they often embed user-supplied ids.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/livecache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SubscriberEvery  uint64
	SnapshotEvery    uint64
	FanoutEvery      uint64
	FetchFailedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	subCtr      atomic.Uint64
	snapshotCtr atomic.Uint64
	fanoutCtr   atomic.Uint64
	fetchCtr    atomic.Uint64
}

var _ livecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SubscriberAdded(streamKey string, active int) {
	if h.l == nil || !sample(h.opts.SubscriberEvery, &h.subCtr) {
		return
	}
	h.l.Debug("livecache.subscriber_added",
		"key", h.redact(streamKey),
		"active", active)
}

func (h *Hooks) SubscriberRemoved(streamKey string, active int) {
	if h.l == nil || !sample(h.opts.SubscriberEvery, &h.subCtr) {
		return
	}
	h.l.Debug("livecache.subscriber_removed",
		"key", h.redact(streamKey),
		"active", active)
}

func (h *Hooks) SnapshotServed(streamKey string, entries int) {
	if h.l == nil || !sample(h.opts.SnapshotEvery, &h.snapshotCtr) {
		return
	}
	h.l.Debug("livecache.snapshot_served",
		"key", h.redact(streamKey),
		"entries", entries)
}

func (h *Hooks) FetchFailed(streamKey string, err error) {
	if h.l == nil || !sample(h.opts.FetchFailedEvery, &h.fetchCtr) {
		return
	}
	h.l.Warn("livecache.fetch_failed",
		"key", h.redact(streamKey),
		"err", err)
}

func (h *Hooks) WriteFanout(streamKey string, keys int) {
	if h.l == nil || !sample(h.opts.FanoutEvery, &h.fanoutCtr) {
		return
	}
	h.l.Debug("livecache.write_fanout",
		"key", h.redact(streamKey),
		"streams", keys)
}
