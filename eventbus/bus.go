// Package eventbus provides the synchronous publish/subscribe channel shared
// by the host and its loaded plugins. Delivery is best-effort: a subscriber
// that panics is logged and skipped, never the emitter's problem.
package eventbus

import (
	"log/slog"
	"sync"
)

// Handler receives the payload of an emitted event.
type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process event bus. Handlers for the same event name run in
// subscription order; no ordering holds across different names.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string][]subscription),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On subscribes handler to the named event and returns an idempotent
// unsubscribe function.
func (b *Bus) On(name string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.off(name, id)
		})
	}
}

func (b *Bus) off(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Emit delivers payload synchronously to every current subscriber of name,
// in subscription order. A panicking handler does not stop delivery to the
// handlers after it.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(name, s, payload)
	}
}

func (b *Bus) deliver(name string, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventbus: handler panicked",
				"event", name,
				"panic", r)
		}
	}()
	s.handler(payload)
}

// SubscriberCount returns the number of active subscribers for name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
