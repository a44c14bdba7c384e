package eventer

import (
	"slices"
	"sync"
	"sync/atomic"
)

type entry[V any] struct {
	listener *Listener[V]
	once     bool
	// fired is set when a once entry has been claimed by a dispatch pass and is
	// waiting to be removed.
	fired atomic.Bool
}

// Registry maps events (of type K) to ordered lists of listeners receiving
// payloads of type V. All methods are safe for concurrent use. Listeners are
// invoked synchronously, on the dispatching goroutine, without the registry
// lock held, so they may register, remove or dispatch themselves.
type Registry[K comparable, V any] struct {
	entries   map[K][]*entry[V]
	contracts map[K]Contract
	lock      sync.Mutex

	logger Logger
	strict bool
}

// New creates an empty Registry and returns a pointer to it.
func New[K comparable, V any](opts ...Option) *Registry[K, V] {
	o := options{logger: nopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	return &Registry[K, V]{
		entries:   make(map[K][]*entry[V]),
		contracts: make(map[K]Contract),
		logger:    o.logger.WithField("component", "registry"),
		strict:    o.strict,
	}
}

// On registers listener for every dispatch of event.
func (r *Registry[K, V]) On(event K, listener *Listener[V]) *Registry[K, V] {
	return r.AddListener(event, listener, false)
}

// Once registers listener for the next dispatch of event only.
func (r *Registry[K, V]) Once(event K, listener *Listener[V]) *Registry[K, V] {
	return r.AddListener(event, listener, true)
}

// AddListener appends listener to the list of event. Registering the same
// listener twice yields two independent entries. A nil listener is ignored.
func (r *Registry[K, V]) AddListener(event K, listener *Listener[V], once bool) *Registry[K, V] {
	if listener == nil {
		r.logger.Warnf("ignoring nil listener for event %v", event)
		return r
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.entries[event] = append(r.entries[event], &entry[V]{listener: listener, once: once})
	return r
}

// RemoveListener removes the first registration of listener on event. Removing
// from an unknown event, or a listener that is not registered, does nothing.
func (r *Registry[K, V]) RemoveListener(event K, listener *Listener[V]) *Registry[K, V] {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, found := r.lookup(event)
	if !found {
		return r
	}

	idx := slices.IndexFunc(entries, func(e *entry[V]) bool {
		return e.listener == listener && !e.fired.Load()
	})
	if idx < 0 {
		return r
	}

	r.entries[event] = slices.Delete(entries, idx, idx+1)
	return r
}

// Subscribe registers fn on event and returns a func that removes that
// registration. Calling the returned func more than once is harmless.
func (r *Registry[K, V]) Subscribe(event K, fn func(V)) (unsubscribe func()) {
	listener := NewListener(fn)
	r.On(event, listener)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.RemoveListener(event, listener)
		})
	}
}

// Notify dispatches event without data. Listeners receive the zero value of V.
func (r *Registry[K, V]) Notify(event K) *Registry[K, V] {
	var zero V
	r.dispatch(event, zero, false)
	return r
}

// Emit dispatches event with data to every listener registered at the time of
// the call, in registration order.
//
// A listener that panics is not recovered: the panic reaches the caller and the
// remaining listeners are skipped. Once listeners invoked up to that point are
// still removed.
func (r *Registry[K, V]) Emit(event K, data V) *Registry[K, V] {
	r.dispatch(event, data, true)
	return r
}

// ListenerCount returns the number of live registrations for event.
func (r *Registry[K, V]) ListenerCount(event K) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, _ := r.lookup(event)

	count := 0
	for _, e := range entries {
		if !e.fired.Load() {
			count++
		}
	}
	return count
}

// RemoveAllListeners empties every listener list.
func (r *Registry[K, V]) RemoveAllListeners() *Registry[K, V] {
	r.lock.Lock()
	defer r.lock.Unlock()

	for event := range r.entries {
		r.entries[event] = nil
	}
	return r
}

// dispatch is a no-op for events without listeners, contracts included.
func (r *Registry[K, V]) dispatch(event K, data V, withData bool) {
	snapshot, found := r.snapshot(event)
	if !found {
		return
	}

	r.check(event, withData)

	var fired []*entry[V]
	defer func() {
		r.discard(event, fired)
	}()

	for _, e := range snapshot {
		if e.once {
			if !e.fired.CompareAndSwap(false, true) {
				continue
			}
			fired = append(fired, e)
		}

		e.listener.call(data)
	}
}

// snapshot copies the list of event so that the dispatch pass is unaffected by
// listeners mutating the registry.
func (r *Registry[K, V]) snapshot(event K) ([]*entry[V], bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, found := r.lookup(event)
	if !found || len(entries) == 0 {
		return nil, false
	}

	return slices.Clone(entries), true
}

// discard removes the given once entries from the list of event.
func (r *Registry[K, V]) discard(event K, fired []*entry[V]) {
	if len(fired) == 0 {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	entries, found := r.lookup(event)
	if !found {
		return
	}

	r.entries[event] = slices.DeleteFunc(entries, func(e *entry[V]) bool {
		return slices.Contains(fired, e)
	})
}

// lookup never creates a list. Callers must hold the lock.
func (r *Registry[K, V]) lookup(event K) ([]*entry[V], bool) {
	entries, found := r.entries[event]
	return entries, found
}
