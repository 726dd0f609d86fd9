// Package eventemitter provides typed event targets that listeners subscribe to
// and that emit events synchronously to every listener.
//
// If you want asynchronous (non-blocking) listeners, wrap your listener in a go routine.
//
// Example:
//
//	et := eventemitter.NewEventTarget[string]("written")
//	token := et.AddListener(func(ctx context.Context, name string) { fmt.Println(name) })
//	et.Emit(ctx, "q1.csv") // Output: q1.csv
//	et.RemoveListener(token)
package eventemitter

import (
	"context"
	"slices"
	"sync"
)

// ListenerToken is the token returned when a listener is added. It is never zero.
type ListenerToken uint64

// Listener handles a single event.
type Listener[E any] func(ctx context.Context, event E)

type eventListener[E any] struct {
	token   ListenerToken
	handler Listener[E]
}

// EventTarget is a named event with its listeners. It is safe for concurrent use.
type EventTarget[E any] struct {
	eventName string

	mu        sync.RWMutex
	lastToken ListenerToken
	listeners []eventListener[E]
}

func NewEventTarget[E any](eventName string) *EventTarget[E] {
	return &EventTarget[E]{eventName: eventName}
}

func (et *EventTarget[E]) EventName() string {
	return et.eventName
}

// AddListener adds a listener and returns the token used to remove it.
func (et *EventTarget[E]) AddListener(listener Listener[E]) ListenerToken {
	et.mu.Lock()
	defer et.mu.Unlock()

	et.lastToken++
	et.listeners = append(et.listeners, eventListener[E]{token: et.lastToken, handler: listener})
	return et.lastToken
}

// RemoveListener removes a listener by token.
func (et *EventTarget[E]) RemoveListener(token ListenerToken) bool {
	et.mu.Lock()
	defer et.mu.Unlock()

	for i, l := range et.listeners {
		if l.token == token {
			et.listeners = slices.Delete(et.listeners, i, i+1)
			return true
		}
	}
	return false
}

// RemoveAllListeners removes every listener. It returns false if there were none.
func (et *EventTarget[E]) RemoveAllListeners() bool {
	et.mu.Lock()
	defer et.mu.Unlock()

	if len(et.listeners) == 0 {
		return false
	}
	et.listeners = nil
	return true
}

// Emit calls each listener synchronously in registration order.
// Listeners may add or remove listeners; changes apply from the next Emit.
// It returns false if there are no listeners.
func (et *EventTarget[E]) Emit(ctx context.Context, event E) bool {
	et.mu.RLock()
	listeners := slices.Clone(et.listeners)
	et.mu.RUnlock()

	if len(listeners) == 0 {
		return false
	}
	for _, l := range listeners {
		l.handler(ctx, event)
	}
	return true
}
