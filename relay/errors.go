package relay

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed  = errors.New("connection has been closed")
	ErrCannotConnect     = errors.New("connection cannot be established")
	ErrTerminated        = errors.New("relay terminated")
	ErrRateLimit         = errors.New("rate limit exceeded")
	ErrNotConnected      = errors.New("relay is not connected")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrInvalidConfig     = errors.New("invalid relay config")
)

// UnrecoverableConnectionError marks dial failures that retrying cannot fix,
// such as a rejected handshake. The relay gives up on them immediately.
type UnrecoverableConnectionError struct {
	err error
	url url.URL
}

func (e *UnrecoverableConnectionError) Error() string {
	return fmt.Sprintf("unrecoverable connection error: %s to %s", e.err, e.url.String())
}

func (e *UnrecoverableConnectionError) Unwrap() error { return e.err }

func WrapUnrecoverableConnection(err error, u url.URL) error {
	if err == nil {
		return nil
	}
	return &UnrecoverableConnectionError{
		err: err,
		url: u,
	}
}
