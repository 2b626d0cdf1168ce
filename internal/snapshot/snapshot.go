// Package snapshot provides a generic single-slot holder shared between the
// poller (sole writer) and renderers (readers).
package snapshot

import (
	"sync"
	"time"
)

// Holder stores the latest published value for one data domain. Values are
// replaced whole; readers never observe a partially written snapshot.
type Holder[T any] struct {
	mu        sync.RWMutex
	value     T
	published time.Time
	ok        bool
}

// New creates an empty holder
func New[T any]() *Holder[T] {
	return &Holder[T]{}
}

// Publish replaces the held snapshot
func (h *Holder[T]) Publish(value T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.value = value
	h.published = time.Now()
	h.ok = true
}

// Latest returns the held snapshot, its publish time, and whether one has
// been published yet
func (h *Holder[T]) Latest() (T, time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.value, h.published, h.ok
}
