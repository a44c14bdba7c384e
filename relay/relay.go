package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"

	"github.com/sonirico/eventer"
)

type (
	options struct {
		logger    eventer.Logger
		backoff   BackoffCalculator
		keepAlive KeepAliveFrameFactory
		passive   PassiveKeepAlive
		adapters  ErrorAdapters
	}

	Option func(*options)
)

func WithLogger(l eventer.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBackoff replaces the exponential reconnection backoff. The configured
// MaxBackoff still caps it.
func WithBackoff(calc BackoffCalculator) Option {
	return func(o *options) { o.backoff = calc }
}

// WithKeepAlive sets the frame sent every Config.PingInterval.
func WithKeepAlive(factory KeepAliveFrameFactory) Option {
	return func(o *options) { o.keepAlive = factory }
}

// WithPassiveKeepAlive sets how received control frames are answered.
func WithPassiveKeepAlive(handler PassiveKeepAlive) Option {
	return func(o *options) { o.passive = handler }
}

// WithErrorAdapters customizes dial error classification of websocket relays.
func WithErrorAdapters(adapters ErrorAdapters) Option {
	return func(o *options) { o.adapters = adapters }
}

// Relay bridges a registry to a remote peer. Envelopes received from the peer
// are dispatched into the registry, and forwarded registry events are sent to
// the peer.
//
// Inbound events are dispatched on the relay goroutine. A listener that panics
// is recovered and logged so the connection survives.
type Relay[V any] struct {
	registry  *eventer.Registry[string, V]
	lifecycle *eventer.Registry[Lifecycle, Status]
	codec     Codec[V]
	factory   ConnectionFactory
	cfg       Config
	logger    eventer.Logger

	backoff   BackoffCalculator
	keepAlive KeepAliveFrameFactory
	passive   PassiveKeepAlive

	conn   Connection
	connMu sync.RWMutex
	recv   chan Frame

	forwarded   map[string]func()
	forwardedMu sync.Mutex

	openOnce  sync.Once
	closeOnce sync.Once
	closeC    CloseChan
}

func newOptions(opts []Option) options {
	o := options{
		logger:    eventer.NopLogger(),
		backoff:   ExponentialBackoffSeconds,
		keepAlive: TimestampPing(),
		passive:   ReplyPingWithPong,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a Relay that dials through factory. Nothing happens until Open.
func New[V any](
	registry *eventer.Registry[string, V],
	codec Codec[V],
	factory ConnectionFactory,
	cfg Config,
	opts ...Option,
) *Relay[V] {
	o := newOptions(opts)
	logger := o.logger.WithField("type", "relay")

	if codec == nil {
		codec = JSONCodec[V]{}
	}

	return &Relay[V]{
		registry:  registry,
		lifecycle: eventer.New[Lifecycle, Status](eventer.WithLogger(logger)),
		codec:     codec,
		factory:   factory,
		cfg:       cfg,
		logger:    logger,
		backoff:   CappedBackoff(o.backoff, cfg.MaxBackoff),
		keepAlive: o.keepAlive,
		passive:   o.passive,
		conn:      noopConnection{},
		recv:      make(chan Frame, 32),
		forwarded: make(map[string]func()),
		closeC:    make(CloseChan),
	}
}

// NewWebsocketRelay creates a Relay dialing cfg.URL over websocket.
func NewWebsocketRelay[V any](
	registry *eventer.Registry[string, V],
	codec Codec[V],
	cfg Config,
	opts ...Option,
) (*Relay[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := cfg.DialParams()
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	factory := NewWebsocketFactory(
		o.logger,
		dialer,
		NewDialParamsRepo(o.logger, StaticDialParams(params)),
		o.adapters,
		cfg.WriteTimeout,
	)

	return New(registry, codec, factory, cfg, opts...), nil
}

// Lifecycle exposes connection state changes.
func (r *Relay[V]) Lifecycle() *eventer.Registry[Lifecycle, Status] {
	return r.lifecycle
}

// Open establishes the first connection and starts relaying. It retries
// according to the backoff until it connects, ctx is done, the relay is closed,
// Config.MaxConnectAttempts is exhausted or the failure is unrecoverable.
// Only the first call has any effect.
func (r *Relay[V]) Open(ctx context.Context) (err error) {
	r.openOnce.Do(func() {
		var conn Connection
		conn, err = r.connect(ctx)
		if err != nil {
			return
		}

		r.setConn(conn)
		r.lifecycle.Emit(EventConnect, Status{})

		go r.run(ctx, conn)
	})

	return
}

// Forward sends every future dispatch of the given events to the peer.
// Events received from the peer are dispatched locally too, so forwarding an
// event the peer also sends echoes it back.
func (r *Relay[V]) Forward(events ...string) *Relay[V] {
	r.forwardedMu.Lock()
	defer r.forwardedMu.Unlock()

	for _, event := range events {
		if _, ok := r.forwarded[event]; ok {
			continue
		}

		event := event
		r.forwarded[event] = r.registry.Subscribe(event, func(data V) {
			if err := r.Send(event, data); err != nil {
				r.logger.Warnf("cannot forward event %q: %s", event, err)
			}
		})
	}
	return r
}

// Unforward stops forwarding the given events.
func (r *Relay[V]) Unforward(events ...string) *Relay[V] {
	r.forwardedMu.Lock()
	defer r.forwardedMu.Unlock()

	for _, event := range events {
		if unsubscribe, ok := r.forwarded[event]; ok {
			unsubscribe()
			delete(r.forwarded, event)
		}
	}
	return r
}

// Send encodes data and sends it to the peer as event.
func (r *Relay[V]) Send(event string, data V) error {
	raw, err := r.codec.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "cannot encode payload of event %q", event)
	}
	return r.sendEnvelope(Envelope{Event: event, Data: raw})
}

// SendSignal sends event to the peer without a payload.
func (r *Relay[V]) SendSignal(event string) error {
	return r.sendEnvelope(Envelope{Event: event})
}

// Close stops the relay and its connection. It is safe to call more than once.
func (r *Relay[V]) Close() {
	r.closeOnce.Do(func() {
		close(r.closeC)

		r.forwardedMu.Lock()
		for event, unsubscribe := range r.forwarded {
			unsubscribe()
			delete(r.forwarded, event)
		}
		r.forwardedMu.Unlock()

		r.currentConn().Close()
	})
}

// CloseChan is closed once the relay is closed.
func (r *Relay[V]) CloseChan() CloseChan {
	return r.closeC
}

func (r *Relay[V]) sendEnvelope(env Envelope) error {
	b, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	return r.currentConn().Write(NewDataFrame(b))
}

func (r *Relay[V]) currentConn() Connection {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return r.conn
}

func (r *Relay[V]) setConn(conn Connection) Connection {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	prev := r.conn
	r.conn = conn
	return prev
}

// connect dials until a connection opens. Attempts count from 1.
func (r *Relay[V]) connect(ctx context.Context) (Connection, error) {
	for attempts := 1; ; attempts++ {
		conn := r.factory(ctx, r.recv)

		err := conn.Open(ctx)
		if err == nil {
			select {
			case <-r.closeC:
				conn.Close()
				return nil, errors.WithStack(ErrTerminated)
			default:
			}
			return conn, nil
		}
		conn.Close()

		var unrecoverable *UnrecoverableConnectionError
		if errors.As(err, &unrecoverable) {
			return nil, err
		}

		if r.cfg.MaxConnectAttempts > 0 && attempts >= r.cfg.MaxConnectAttempts {
			return nil, errors.Wrapf(err, "giving up after %d attempts", attempts)
		}

		wait := r.backoff(attempts)
		r.logger.Infof("cannot connect due to %s, waiting %s", err, wait)

		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (r *Relay[V]) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closeC:
		return errors.WithStack(ErrTerminated)
	case <-timer.C:
		return nil
	}
}

func (r *Relay[V]) run(ctx context.Context, conn Connection) {
	var (
		ping        <-chan time.Time
		reopen      <-chan time.Time
		closeChan   = conn.CloseChan()
		attempts    = 0
		connectedAt = time.Now()
		cause       error
	)

	if r.cfg.PingInterval > 0 {
		ticker := time.NewTicker(r.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	if r.cfg.ReopenInterval > 0 {
		ticker := time.NewTicker(r.cfg.ReopenInterval)
		defer ticker.Stop()
		reopen = ticker.C
	}

	defer func() {
		r.Close()
		// Close may have run while a connection was being installed.
		r.currentConn().Close()
		r.lifecycle.Emit(EventClose, Status{Attempt: attempts, Err: cause})
	}()

	for {
		select {
		case <-ctx.Done():
			cause = ctx.Err()
			return
		case <-r.closeC:
			cause = ErrTerminated
			return
		case f := <-r.recv:
			r.handleFrame(f)
		case <-ping:
			if err := r.currentConn().Write(r.keepAlive()); err != nil {
				r.logger.Debugf("cannot send keep-alive: %s", err)
			}
		case <-reopen:
			// Open the next connection before closing the current one, duplicated
			// frames are preferred over lost ones.
			r.logger.Infof("reopening connection")

			next, err := r.connect(ctx)
			if err != nil {
				cause = err
				return
			}

			r.setConn(next).Close()
			closeChan = next.CloseChan()
			connectedAt = time.Now()
			attempts = 0

			r.lifecycle.Emit(EventReconnect, Status{})
		case <-closeChan:
			select {
			case <-r.closeC:
				cause = ErrTerminated
				return
			default:
			}

			current := r.currentConn()
			reason := current.CloseErr()
			current.Close()

			if time.Since(connectedAt) > r.cfg.HealthyThreshold {
				// The connection was healthy, reconnect asap.
				attempts = 0
			} else {
				attempts++
			}

			r.lifecycle.Emit(EventDisconnect, Status{Attempt: attempts, Err: reason})

			wait := r.backoff(attempts)
			r.logger.Infof("retrying to connect after %s due to %v", wait, reason)

			if err := r.sleep(ctx, wait); err != nil {
				cause = err
				return
			}

			next, err := r.connect(ctx)
			if err != nil {
				r.logger.Errorf("cannot reconnect: %s", err)
				cause = err
				return
			}

			r.setConn(next)
			closeChan = next.CloseChan()
			connectedAt = time.Now()

			r.lifecycle.Emit(EventReconnect, Status{Attempt: attempts})
		}
	}
}

func (r *Relay[V]) handleFrame(f Frame) {
	if r.passive != nil {
		if reply, ok := r.passive(f); ok {
			if err := r.currentConn().Write(reply); err != nil {
				r.logger.Debugf("cannot answer %s: %s", f, err)
			}
		}
	}

	switch t := f.Type(); {
	case t.IsData():
		r.dispatch(f)
	case t.IsPong():
		r.logger.Debugln("pong received")
	case t.IsClose():
		r.logger.Infof("peer is closing: %s", f)
	}
}

func (r *Relay[V]) dispatch(f Frame) {
	env, err := f.Envelope()
	if err != nil {
		r.logger.Warnf("dropping frame: %s", err)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("listener of event %q panicked: %v", env.Event, p)
		}
	}()

	if !env.HasData() {
		r.registry.Notify(env.Event)
		return
	}

	data, err := r.codec.Unmarshal(env.Data)
	if err != nil {
		r.logger.Warnf("dropping event %q: cannot decode payload: %s", env.Event, err)
		return
	}

	r.registry.Emit(env.Event, data)
}
