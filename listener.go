package eventer

// Listener is a registered callback. Func values are not comparable in Go, so a
// callback is wrapped once and the returned pointer is what AddListener and
// RemoveListener compare against.
type Listener[V any] struct {
	fn func(V)
}

// NewListener wraps fn so it can be registered and later removed.
func NewListener[V any](fn func(V)) *Listener[V] {
	if fn == nil {
		return nil
	}
	return &Listener[V]{fn: fn}
}

// NewSignal wraps a callback for events that carry no data. The payload passed
// on dispatch is ignored.
func NewSignal[V any](fn func()) *Listener[V] {
	if fn == nil {
		return nil
	}
	return &Listener[V]{fn: func(V) { fn() }}
}

func (l *Listener[V]) call(data V) {
	l.fn(data)
}
