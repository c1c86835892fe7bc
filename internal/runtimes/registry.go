// Package runtimes tracks user application runtimes that announce
// themselves to the CLI after being launched, and coordinates waiting
// for a specific runtime to appear.
package runtimes

import (
	"sync"
	"time"
)

// Runtime is one announced application runtime.
type Runtime struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	PID           int       `json:"pid,omitempty"`
	ReflectionURL string    `json:"reflectionUrl,omitempty"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
)

type Event struct {
	Kind    EventKind
	Runtime Runtime
}

// Registry is an in-memory view of the announced runtimes with a
// subscribable event stream.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]Runtime
	nextID   int
	watchers map[int]func(Event)
}

func NewRegistry() *Registry {
	return &Registry{
		runtimes: map[string]Runtime{},
		watchers: map[int]func(Event){},
	}
}

func (r *Registry) GetByID(id string) (Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.runtimes[id]
	return rt, ok
}

func (r *Registry) List() []Runtime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Runtime, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		out = append(out, rt)
	}
	return out
}

// Subscribe registers a callback for add/remove events. The returned
// cancel func detaches the listener; it is safe to call more than once.
func (r *Registry) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

func (r *Registry) Add(rt Runtime) {
	if rt.ID == "" {
		return
	}
	if rt.RegisteredAt.IsZero() {
		rt.RegisteredAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.runtimes[rt.ID] = rt
	r.mu.Unlock()
	r.publish(Event{Kind: EventAdded, Runtime: rt})
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	rt, ok := r.runtimes[id]
	if ok {
		delete(r.runtimes, id)
	}
	r.mu.Unlock()
	if ok {
		r.publish(Event{Kind: EventRemoved, Runtime: rt})
	}
}

// publish runs callbacks outside the lock so a subscriber may call back
// into the registry.
func (r *Registry) publish(event Event) {
	r.mu.RLock()
	fns := make([]func(Event), 0, len(r.watchers))
	for _, fn := range r.watchers {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()
	for _, fn := range fns {
		fn(event)
	}
}

func (r *Registry) watcherCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watchers)
}
