package relay

// Lifecycle names the events published on Relay.Lifecycle.
type Lifecycle int

const (
	// EventConnect fires once, when Open succeeds.
	EventConnect Lifecycle = iota + 1
	// EventDisconnect fires every time the current connection is lost.
	EventDisconnect
	// EventReconnect fires when a replacement connection is open.
	EventReconnect
	// EventClose fires once, when the relay stops for good.
	EventClose
)

func (l Lifecycle) String() string {
	switch l {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventReconnect:
		return "reconnect"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Status is the payload of lifecycle events.
type Status struct {
	// Attempt is the number of consecutive failed connections so far.
	Attempt int
	// Err is why the connection, or the relay, went down.
	Err error
}
