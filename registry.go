package breaker

import (
	"sync"
)

// Registry is a process-wide singleton holding every registered Breaker.
// Registration subscribes to the breaker's snapshot stream; the handler
// serialises snapshots onto a raw feed that downstream consumers
// (dashboard, metrics) read from.
type Registry struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	unsub     map[string]func()
	rawFeed   listeners[Snapshot]
}

// GlobalRegistry is the shared instance every Breaker registers with
// unless constructed with WithRegisterGlobal(false).
var GlobalRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		unsub:    make(map[string]func()),
	}
}

func (r *Registry) register(b *Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.breakers[b.id]; exists {
		return
	}
	r.breakers[b.id] = b
	r.unsub[b.id] = b.OnSnapshot(func(snap Snapshot) {
		r.rawFeed.emit(snap)
	})
}

func (r *Registry) deregister(b *Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if unsub, ok := r.unsub[b.id]; ok {
		unsub()
		delete(r.unsub, b.id)
	}
	delete(r.breakers, b.id)
}

// InstanceCount returns the number of breakers currently registered.
func (r *Registry) InstanceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.breakers)
}

// Breakers returns a snapshot slice of every currently registered breaker.
func (r *Registry) Breakers() []*Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b)
	}
	return out
}

// Lookup returns the registered breaker with the given name, if any.
func (r *Registry) Lookup(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// OnSnapshot subscribes fn to the raw feed: every snapshot published by any
// registered breaker, in publication order. Returns an unsubscribe func.
func (r *Registry) OnSnapshot(fn func(Snapshot)) func() {
	return r.rawFeed.add(fn)
}
