// Package event provides the change-notification primitive used by the
// in-memory store. Each collection owns one Emitter; subscribers register
// a callback and get back a function that removes it.
package event

import (
	"sort"
	"sync"
)

// Listener is invoked once per emitted notification.
type Listener func()

// Emitter fans a notification out to every current subscriber in
// registration order.
type Emitter struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]Listener
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[uint64]Listener)}
}

// Subscribe registers fn and returns its unsubscribe function. Calling the
// returned function more than once is harmless.
func (e *Emitter) Subscribe(fn Listener) (unsubscribe func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.listeners[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Emit calls every subscriber synchronously. Listeners may subscribe or
// unsubscribe from inside the callback.
func (e *Emitter) Emit() {
	e.mu.RLock()
	ids := make([]uint64, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of live subscribers.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
