package bucket

import (
	"context"
	"sync"
)

// Memory is the default in-process Bucket: a lock-guarded map of stream
// key to entry list. It never evicts; rows disappear only through
// RemoveKeyFromValues.
type Memory[T any] struct {
	mu   sync.RWMutex
	rows map[string][]*Entry[T]
}

// NewMemory returns an empty in-process bucket.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{rows: make(map[string][]*Entry[T])}
}

func (m *Memory[T]) Put(_ context.Context, streamKey string, e *Entry[T]) []string {
	m.mu.Lock()
	e.AddKey(streamKey)
	row := m.rows[streamKey]
	replaced := false
	for i, old := range row {
		if old.ID() == e.ID() {
			if old != e {
				// the row slot moves to e, so the displaced entry no
				// longer holds this key
				old.RemoveKey(streamKey)
				row[i] = e
			}
			replaced = true
			break
		}
	}
	if !replaced {
		m.rows[streamKey] = append(row, e)
	}
	keys := e.StreamKeys()
	m.mu.Unlock()
	return keys
}

func (m *Memory[T]) AllForKey(_ context.Context, streamKey string) []*Entry[T] {
	m.mu.RLock()
	row := m.rows[streamKey]
	var out []*Entry[T]
	if len(row) > 0 {
		out = make([]*Entry[T], len(row))
		copy(out, row)
	}
	m.mu.RUnlock()
	return out
}

func (m *Memory[T]) RemoveKeyFromValues(_ context.Context, streamKey string) {
	m.mu.Lock()
	if row, ok := m.rows[streamKey]; ok {
		for _, e := range row {
			e.RemoveKey(streamKey)
		}
		delete(m.rows, streamKey)
	}
	m.mu.Unlock()
}

// Len reports how many stream keys currently have rows. Diagnostic only,
// not part of the Bucket contract.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	n := len(m.rows)
	m.mu.RUnlock()
	return n
}
