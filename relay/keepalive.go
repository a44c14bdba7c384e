package relay

import (
	"strconv"
	"time"
)

// KeepAliveFrameFactory builds the frame sent on every keep-alive tick.
type KeepAliveFrameFactory func() Frame

// NewKeepAliveFrameFactory returns a factory of frames of type ft whose content
// is produced by contentFactory.
func NewKeepAliveFrameFactory(ft FrameType, contentFactory func() []byte) KeepAliveFrameFactory {
	return func() Frame {
		return NewFrame(ft, contentFactory())
	}
}

// TimestampPing is the default keep-alive: a ping carrying the unix time in
// milliseconds.
func TimestampPing() KeepAliveFrameFactory {
	return NewKeepAliveFrameFactory(PingFrame, func() []byte {
		return strconv.AppendInt(nil, time.Now().UnixMilli(), 10)
	})
}

// PassiveKeepAlive answers a received frame. It returns the reply and whether
// one should be sent.
type PassiveKeepAlive func(f Frame) (Frame, bool)

// ReplyPingWithPong echoes ping payloads back as pongs.
func ReplyPingWithPong(f Frame) (Frame, bool) {
	if f.Type().IsPing() {
		return NewPongFrame(f.Data()), true
	}
	return Frame{}, false
}
