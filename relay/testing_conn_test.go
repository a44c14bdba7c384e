package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

type fakeConnection struct {
	openErr  error
	openGate chan struct{}
	recv    chan<- Frame
	written chan Frame

	closeC    CloseChan
	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
}

func newFakeConnection(recv chan<- Frame, openErr error) *fakeConnection {
	return &fakeConnection{
		openErr: openErr,
		recv:    recv,
		written: make(chan Frame, 64),
		closeC:  make(CloseChan),
	}
}

func (c *fakeConnection) Open(context.Context) error {
	if c.openGate != nil {
		<-c.openGate
	}
	return c.openErr
}

func (c *fakeConnection) Write(f Frame) error {
	select {
	case <-c.closeC:
		return errors.WithStack(ErrConnectionClosed)
	default:
	}

	select {
	case c.written <- f:
		return nil
	case <-c.closeC:
		return errors.WithStack(ErrConnectionClosed)
	}
}

func (c *fakeConnection) Close() {
	c.drop(ErrTerminated)
}

// drop simulates the connection going away for reason.
func (c *fakeConnection) drop(reason error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeErr = reason
		c.mu.Unlock()
		close(c.closeC)
	})
}

func (c *fakeConnection) CloseErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

func (c *fakeConnection) CloseChan() CloseChan {
	return c.closeC
}

func (c *fakeConnection) push(f Frame) {
	c.recv <- f
}

func (c *fakeConnection) closed() bool {
	select {
	case <-c.closeC:
		return true
	default:
		return false
	}
}

// fakeDialer hands out fake connections. Queued errors are returned by the
// Open of successive connections, the rest open fine and are published on
// dialed.
type fakeDialer struct {
	mu       sync.Mutex
	openErrs []error
	gate     chan struct{}
	dials    int
	dialed   chan *fakeConnection
}

func newFakeDialer(openErrs ...error) *fakeDialer {
	return &fakeDialer{openErrs: openErrs, dialed: make(chan *fakeConnection, 16)}
}

func (d *fakeDialer) factory(_ context.Context, recv chan<- Frame) Connection {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++

	var openErr error
	if len(d.openErrs) > 0 {
		openErr, d.openErrs = d.openErrs[0], d.openErrs[1:]
	}

	conn := newFakeConnection(recv, openErr)
	conn.openGate = d.gate
	if openErr == nil {
		select {
		case d.dialed <- conn:
		default:
		}
	}
	return conn
}

// block makes the Open of every following connection wait until gate is closed.
func (d *fakeDialer) block(gate chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = gate
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Marshal(v greeting) ([]byte, error) {
	args := m.Called(v)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockCodec) Unmarshal(b []byte) (greeting, error) {
	args := m.Called(b)
	return args.Get(0).(greeting), args.Error(1)
}

func receive[T any](t *testing.T, c chan T) T {
	t.Helper()

	select {
	case v := <-c:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}

	var zero T
	return zero
}

func nothingWithin[T any](t *testing.T, c chan T, d time.Duration) {
	t.Helper()

	select {
	case v := <-c:
		t.Fatalf("unexpected value %v", v)
	case <-time.After(d):
	}
}
