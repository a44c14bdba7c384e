package relay

import (
	"context"

	"github.com/pkg/errors"
)

type (
	CloseChan chan struct{}

	// Connection is a single transport session with the peer. Received frames
	// are pushed to the channel given to the ConnectionFactory.
	Connection interface {
		// Open establishes the connection. It returns once the connection is
		// usable or has failed.
		Open(ctx context.Context) error
		// Write queues a frame to be sent to the peer.
		Write(f Frame) error
		// Close tears the connection down. It is safe to call more than once.
		Close()
		// CloseErr explains why the connection was closed.
		CloseErr() error
		// CloseChan is closed when the connection is closed.
		CloseChan() CloseChan
	}

	ConnectionFactory func(ctx context.Context, recv chan<- Frame) Connection
)

// noopConnection stands in before the first connection is open.
type noopConnection struct{}

func (noopConnection) Open(context.Context) error { return nil }

func (noopConnection) Write(Frame) error {
	return errors.WithStack(ErrNotConnected)
}

func (noopConnection) Close() {}

func (noopConnection) CloseErr() error { return nil }

func (noopConnection) CloseChan() CloseChan { return nil }
