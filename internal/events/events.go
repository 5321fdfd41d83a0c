// Package events provides small typed pub/sub primitives used to push state
// snapshots from the session engine to whoever renders them.
package events

import (
	"sync"
)

// listenerSet holds the registration bookkeeping shared by ChannelEvent and
// CallbackEvent. L is the listener type, T the notified value.
type listenerSet[L any, T any] struct {
	mu        sync.RWMutex
	listeners map[uint64]L
	nextID    uint64
	replay    bool
	last      T
	hasLast   bool
}

func newListenerSet[L any, T any](replay bool) listenerSet[L, T] {
	return listenerSet[L, T]{
		listeners: make(map[uint64]L),
		replay:    replay,
	}
}

// add registers l and reports the value it should be primed with, if any.
func (s *listenerSet[L, T]) add(l L) (uint64, T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return id, s.last, s.replay && s.hasLast
}

func (s *listenerSet[L, T]) remove(id uint64) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// publish records value for replay and returns a copy of the listeners so
// they can be invoked without holding the lock.
func (s *listenerSet[L, T]) publish(value T) []L {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replay {
		s.last = value
		s.hasLast = true
	}
	out := make([]L, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *listenerSet[L, T]) lastValue() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.replay && s.hasLast
}

func (s *listenerSet[L, T]) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// ChannelEvent delivers each notified value to every registered channel.
// Sends never block. Without replay a listener whose buffer is full misses
// the value. With replay the event carries state, so the stale pending value
// is swapped for the new one and a slow reader always ends on the latest.
type ChannelEvent[T any] struct {
	// deliverMu orders deliveries the same way publish orders values
	deliverMu sync.Mutex
	set       listenerSet[chan T, T]
}

// NewChannelEvent creates a ChannelEvent. With replay set, a channel that
// starts listening after the first Notify immediately receives the latest value.
func NewChannelEvent[T any](replay bool) *ChannelEvent[T] {
	return &ChannelEvent[T]{set: newListenerSet[chan T, T](replay)}
}

// Listen registers ch and returns its deregistration function. The event
// only sends on ch, and with replay may discard a value ch still buffers.
func (e *ChannelEvent[T]) Listen(ch chan T) func() {
	if ch == nil {
		panic("events: channel cannot be nil")
	}
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	id, last, prime := e.set.add(ch)
	if prime {
		e.deliver(ch, last)
	}
	return func() { e.set.remove(id) }
}

// Notify fans value out to all listeners.
func (e *ChannelEvent[T]) Notify(value T) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	for _, ch := range e.set.publish(value) {
		e.deliver(ch, value)
	}
}

// deliver sends value on ch without blocking.
// MUST be called with deliverMu held.
func (e *ChannelEvent[T]) deliver(ch chan T, value T) {
	select {
	case ch <- value:
		return
	default:
	}
	if !e.set.replay {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- value:
	default:
	}
}

// Last returns the most recently notified value when replay is enabled.
func (e *ChannelEvent[T]) Last() (T, bool) {
	return e.set.lastValue()
}

// ListenerCount returns the number of registered channels.
func (e *ChannelEvent[T]) ListenerCount() int {
	return e.set.count()
}

// CallbackEvent invokes registered callbacks synchronously on Notify, outside
// of any internal lock so a callback may deregister itself.
type CallbackEvent[T any] struct {
	set listenerSet[func(T), T]
}

// NewCallbackEvent creates a CallbackEvent. See NewChannelEvent for replay.
func NewCallbackEvent[T any](replay bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{set: newListenerSet[func(T), T](replay)}
}

// Listen registers callback and returns its deregistration function.
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("events: callback cannot be nil")
	}
	id, last, prime := e.set.add(callback)
	if prime {
		callback(last)
	}
	return func() { e.set.remove(id) }
}

// Notify calls every registered callback with value.
func (e *CallbackEvent[T]) Notify(value T) {
	for _, cb := range e.set.publish(value) {
		cb(value)
	}
}

// Last returns the most recently notified value when replay is enabled.
func (e *CallbackEvent[T]) Last() (T, bool) {
	return e.set.lastValue()
}

// ListenerCount returns the number of registered callbacks.
func (e *CallbackEvent[T]) ListenerCount() int {
	return e.set.count()
}
